package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
)

type MatchRepository struct {
	store *Store
}

func NewMatchRepository() *MatchRepository {
	return NewStore().Matches()
}

func (r *MatchRepository) ReconcileCandidate(_ context.Context, candidate match.Candidate) (match.Match, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	home := s.getOrCreateTeamLocked(candidate.HomeTeam)
	away := s.getOrCreateTeamLocked(candidate.AwayTeam)
	if home.ID == away.ID {
		return match.Match{}, false, fmt.Errorf("insert match: home and away team are both %q", home.Name)
	}

	key := keyOf(home.ID, away.ID, candidate.MatchDate)
	if id, ok := s.matchKey[key]; ok {
		return s.matches[id], false, nil
	}

	now := s.now().UTC()
	s.matchSeq++
	item := match.Match{
		ID:        s.matchSeq,
		HomeTeam:  home,
		AwayTeam:  away,
		MatchDate: candidate.MatchDate.UTC(),
		Location:  candidate.Location,
		Status:    candidate.Status,
		MatchURL:  candidate.MatchURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.matches[item.ID] = item
	s.matchKey[key] = item.ID
	return item, true, nil
}

func (r *MatchRepository) GetByID(_ context.Context, id int64) (match.Match, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.matches[id]
	return item, ok, nil
}

func (r *MatchRepository) ListByDateRange(_ context.Context, from, to time.Time, statuses ...match.Status) ([]match.Match, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	allowed := make(map[match.Status]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}

	out := make([]match.Match, 0)
	for _, item := range r.store.matches {
		if item.MatchDate.Before(from) || item.MatchDate.After(to) {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[item.Status]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MatchDate.Equal(out[j].MatchDate) {
			return out[i].MatchDate.Before(out[j].MatchDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MatchRepository) List(_ context.Context, filter match.Filter) ([]match.Match, error) {
	items := r.filtered(filter)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].MatchDate.Equal(items[j].MatchDate) {
			return items[i].MatchDate.After(items[j].MatchDate)
		}
		return items[i].ID > items[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return []match.Match{}, nil
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *MatchRepository) Count(_ context.Context, filter match.Filter) (int, error) {
	return len(r.filtered(filter)), nil
}

func (r *MatchRepository) CountByStatus(_ context.Context) (map[match.Status]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[match.Status]int)
	for _, item := range r.store.matches {
		out[item.Status]++
	}
	return out, nil
}

func (r *MatchRepository) UpdateStatus(_ context.Context, id int64, status match.Status) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("update match status id=%d: no rows updated", id)
	}
	item.Status = status
	item.UpdatedAt = s.now().UTC()
	s.matches[id] = item
	return nil
}

func (r *MatchRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, item := range s.matches {
		if !item.MatchDate.Before(cutoff) {
			continue
		}
		delete(s.matches, id)
		delete(s.matchKey, keyOf(item.HomeTeam.ID, item.AwayTeam.ID, item.MatchDate))
		deleted++
	}
	return deleted, nil
}

func (r *MatchRepository) filtered(filter match.Filter) []match.Match {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]match.Match, 0, len(r.store.matches))
	for _, item := range r.store.matches {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}
