package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/crex-scraper/internal/domain/jobscheduler"
)

// JobDispatchRepository keeps the latest event per dispatch id.
type JobDispatchRepository struct {
	mu     sync.RWMutex
	events map[string]jobscheduler.DispatchEvent
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{events: make(map[string]jobscheduler.DispatchEvent)}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	event.DispatchID = strings.TrimSpace(event.DispatchID)
	if err := event.Validate(); err != nil {
		return fmt.Errorf("upsert job dispatch: %w", err)
	}
	id := event.DispatchID

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.events[id]; ok {
		if !event.Status.Supersedes(prev.Status) {
			return nil
		}
		if event.MatchID == 0 {
			event.MatchID = prev.MatchID
		}
	}
	r.events[id] = event
	return nil
}

func (r *JobDispatchRepository) ListRecent(_ context.Context, limit int) ([]jobscheduler.DispatchEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]jobscheduler.DispatchEvent, 0, len(r.events))
	for _, item := range r.events {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
