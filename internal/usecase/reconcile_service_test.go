package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	matchmock "github.com/riskibarqy/crex-scraper/internal/mocks/domain/match"
)

var reconcileAt = time.Date(2025, 7, 16, 14, 0, 0, 0, time.UTC)

func TestReconcileService_NormalizesAndStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := matchmock.NewRepository(t)
	service := NewReconcileService(repo, nil)

	stored := match.Match{
		ID:        7,
		HomeTeam:  team.Team{ID: 1, Name: "India"},
		AwayTeam:  team.Team{ID: 2, Name: "Australia"},
		MatchDate: reconcileAt,
		Location:  match.DefaultLocation,
		Status:    match.StatusScheduled,
	}
	repo.
		On("ReconcileCandidate", ctx, mock.MatchedBy(func(c match.Candidate) bool {
			return c.HomeTeam == "India" && c.AwayTeam == "Australia" && c.Location == match.DefaultLocation
		})).
		Return(stored, true, nil).
		Once()

	got, err := service.Reconcile(ctx, match.Candidate{HomeTeam: "  India ", AwayTeam: "Australia", MatchDate: reconcileAt})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !got.Created || got.Match.ID != 7 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestReconcileService_RejectsSameTeam(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	service := NewReconcileService(repo, nil)

	_, err := service.Reconcile(context.Background(), match.Candidate{HomeTeam: "India", AwayTeam: "INDIA", MatchDate: reconcileAt})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReconcileService_RetriesConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := matchmock.NewRepository(t)
	service := NewReconcileService(repo, nil)
	conflict := fmt.Errorf("insert match: %w", match.ErrConflict)

	repo.On("ReconcileCandidate", ctx, mock.Anything).Return(match.Match{}, false, conflict).Twice()
	repo.On("ReconcileCandidate", ctx, mock.Anything).Return(match.Match{ID: 3}, false, nil).Once()

	got, err := service.Reconcile(ctx, match.Candidate{HomeTeam: "India", AwayTeam: "England", MatchDate: reconcileAt})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got.Created || got.Match.ID != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestReconcileService_GivesUpAfterThreeConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := matchmock.NewRepository(t)
	service := NewReconcileService(repo, nil)
	conflict := fmt.Errorf("insert match: %w", match.ErrConflict)

	repo.On("ReconcileCandidate", ctx, mock.Anything).Return(match.Match{}, false, conflict).Times(3)

	_, err := service.Reconcile(ctx, match.Candidate{HomeTeam: "India", AwayTeam: "England", MatchDate: reconcileAt})
	var reconcileErr *ReconciliationError
	if !errors.As(err, &reconcileErr) {
		t.Fatalf("expected ReconciliationError, got %v", err)
	}
	if !errors.Is(err, match.ErrConflict) {
		t.Fatalf("expected wrapped conflict, got %v", err)
	}
	if reconcileErr.Candidate.HomeTeam != "India" {
		t.Fatalf("unexpected candidate in error: %+v", reconcileErr.Candidate)
	}
}

func TestReconcileService_DoesNotRetryOtherFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := matchmock.NewRepository(t)
	service := NewReconcileService(repo, nil)

	repo.On("ReconcileCandidate", ctx, mock.Anything).Return(match.Match{}, false, errors.New("connection reset")).Once()

	_, err := service.Reconcile(ctx, match.Candidate{HomeTeam: "India", AwayTeam: "England", MatchDate: reconcileAt})
	var reconcileErr *ReconciliationError
	if !errors.As(err, &reconcileErr) {
		t.Fatalf("expected ReconciliationError, got %v", err)
	}
}
