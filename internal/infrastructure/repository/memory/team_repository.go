package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/crex-scraper/internal/domain/team"
)

type TeamRepository struct {
	store *Store
}

func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]team.Team, 0, len(r.store.teamsByName))
	for _, item := range r.store.teamsByName {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
