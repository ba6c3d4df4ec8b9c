package match

import (
	"context"
	"time"
)

// Repository persists matches. ReconcileCandidate is the only path that creates rows.
type Repository interface {
	// ReconcileCandidate get-or-creates both teams and the match in one
	// transaction. An existing match is returned untouched with created=false.
	ReconcileCandidate(ctx context.Context, candidate Candidate) (Match, bool, error)
	GetByID(ctx context.Context, id int64) (Match, bool, error)
	// ListByDateRange returns matches with from <= match_date <= to, oldest first.
	ListByDateRange(ctx context.Context, from, to time.Time, statuses ...Status) ([]Match, error)
	List(ctx context.Context, filter Filter) ([]Match, error)
	Count(ctx context.Context, filter Filter) (int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
