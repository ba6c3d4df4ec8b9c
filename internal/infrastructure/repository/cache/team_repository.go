package cache

import (
	"context"

	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	basecache "github.com/riskibarqy/crex-scraper/internal/platform/cache"
)

const teamListKey = "team:list"

// TeamRepository serves team reads from a TTL cache in front of next.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store[[]team.Team]
}

func NewTeamRepository(next team.Repository, cache *basecache.Store[[]team.Team]) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	items, err := r.cache.GetOrLoad(ctx, teamListKey, func(ctx context.Context) ([]team.Team, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	return append([]team.Team(nil), items...), nil
}

// Invalidate drops the cached list; reconciliation may have created teams.
func (r *TeamRepository) Invalidate(ctx context.Context) {
	r.cache.Delete(ctx, teamListKey)
}
