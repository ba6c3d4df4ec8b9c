package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
)

const defaultReconcileAttempts = 3

type ReconcileResult struct {
	Match   match.Match
	Created bool
}

// ReconcileService turns extracted candidates into stored matches.
type ReconcileService struct {
	matchRepo   match.Repository
	maxAttempts int
	logger      *logging.Logger
}

func NewReconcileService(matchRepo match.Repository, logger *logging.Logger) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		matchRepo:   matchRepo,
		maxAttempts: defaultReconcileAttempts,
		logger:      logger,
	}
}

// Reconcile get-or-creates the candidate's teams and match. Running it twice
// with the same candidate returns the same row.
func (s *ReconcileService) Reconcile(ctx context.Context, candidate match.Candidate) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile")
	defer span.End()

	candidate = candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		item, created, err := s.matchRepo.ReconcileCandidate(ctx, candidate)
		if err == nil {
			return ReconcileResult{Match: item, Created: created}, nil
		}
		lastErr = err
		if !errors.Is(err, match.ErrConflict) || ctx.Err() != nil {
			break
		}
		s.logger.DebugContext(ctx, "retry match reconciliation after conflict",
			"home_team", candidate.HomeTeam,
			"away_team", candidate.AwayTeam,
			"attempt", attempt,
			"error", err,
		)
	}

	return ReconcileResult{}, &ReconciliationError{Candidate: candidate, Err: lastErr}
}
