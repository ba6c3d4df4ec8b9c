package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	"github.com/riskibarqy/crex-scraper/internal/platform/cache"
	matchmock "github.com/riskibarqy/crex-scraper/internal/mocks/domain/match"
	teammock "github.com/riskibarqy/crex-scraper/internal/mocks/domain/team"
)

var queryNow = time.Date(2025, 7, 16, 20, 0, 0, 0, time.UTC)

func newTestQueryService(t *testing.T, matchRepo match.Repository, teamRepo team.Repository, loc *time.Location) (*MatchQueryService, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(queryNow)
	store := cache.NewStoreWithClock[Dashboard](30*time.Second, clock)
	return NewMatchQueryService(matchRepo, teamRepo, store, loc, clock), clock
}

func TestMatchQueryService_ListMatchesPaginates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := matchmock.NewRepository(t)
	service, _ := newTestQueryService(t, matchRepo, teammock.NewRepository(t), nil)

	isFilter := func(limit, offset int) func(match.Filter) bool {
		return func(f match.Filter) bool {
			return f.Status == match.StatusLive && f.Team == "india" && f.Limit == limit && f.Offset == offset
		}
	}
	matchRepo.On("Count", ctx, mock.MatchedBy(isFilter(0, 0))).Return(45, nil).Once()
	matchRepo.On("List", ctx, mock.MatchedBy(isFilter(20, 20))).Return([]match.Match{{ID: 1}}, nil).Once()

	got, err := service.ListMatches(ctx, MatchListQuery{Status: "live", Team: " india ", Page: 2})
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if got.Page != 2 || got.PageSize != DefaultPageSize || got.TotalMatches != 45 || got.TotalPages != 3 {
		t.Fatalf("unexpected page: %+v", got)
	}
}

func TestMatchQueryService_ListMatchesTodayUsesLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ist := time.FixedZone("IST", 5*3600+1800)
	matchRepo := matchmock.NewRepository(t)
	service, _ := newTestQueryService(t, matchRepo, teammock.NewRepository(t), ist)

	// 20:00 UTC is already 17 Jul in IST.
	wantFrom := time.Date(2025, 7, 17, 0, 0, 0, 0, ist)
	isToday := func(f match.Filter) bool {
		return f.From != nil && f.Until != nil && f.From.Equal(wantFrom) && f.Until.Equal(wantFrom.AddDate(0, 0, 1))
	}
	matchRepo.On("Count", ctx, mock.MatchedBy(isToday)).Return(0, nil).Once()
	matchRepo.On("List", ctx, mock.MatchedBy(isToday)).Return([]match.Match{}, nil).Once()

	got, err := service.ListMatches(ctx, MatchListQuery{Date: "today", PageSize: 500})
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if got.PageSize != MaxPageSize || got.TotalPages != 0 {
		t.Fatalf("unexpected page: %+v", got)
	}
}

func TestMatchQueryService_RejectsUnknownFilters(t *testing.T) {
	t.Parallel()

	service, _ := newTestQueryService(t, matchmock.NewRepository(t), teammock.NewRepository(t), nil)

	if _, err := service.ListMatches(context.Background(), MatchListQuery{Status: "abandoned"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for status, got %v", err)
	}
	if _, err := service.ListMatches(context.Background(), MatchListQuery{Date: "yesterday"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for date, got %v", err)
	}
}

func TestMatchQueryService_MatchFeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := matchmock.NewRepository(t)
	service, _ := newTestQueryService(t, matchRepo, teammock.NewRepository(t), nil)

	matchRepo.
		On("List", ctx, mock.MatchedBy(func(f match.Filter) bool { return f.Status == "" && f.Limit == MaxFeedLimit })).
		Return([]match.Match{{ID: 1}, {ID: 2}}, nil).
		Once()
	matchRepo.On("Count", ctx, match.Filter{}).Return(250, nil).Once()

	got, err := service.MatchFeed(ctx, "all", 1000)
	if err != nil {
		t.Fatalf("match feed: %v", err)
	}
	if got.Count != 2 || got.TotalMatches != 250 {
		t.Fatalf("unexpected feed: %+v", got)
	}
}

func TestMatchQueryService_GetMatchNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := matchmock.NewRepository(t)
	service, _ := newTestQueryService(t, matchRepo, teammock.NewRepository(t), nil)

	matchRepo.On("GetByID", ctx, int64(5)).Return(match.Match{}, false, nil).Once()

	if _, err := service.GetMatch(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchQueryService_DashboardIsCachedUntilInvalidated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := matchmock.NewRepository(t)
	service, clock := newTestQueryService(t, matchRepo, teammock.NewRepository(t), nil)

	counts := map[match.Status]int{match.StatusScheduled: 4, match.StatusLive: 1, match.StatusCompleted: 2}
	matchRepo.On("CountByStatus", ctx).Return(counts, nil).Times(3)
	matchRepo.On("List", ctx, match.Filter{Limit: 10}).Return([]match.Match{{ID: 1}}, nil).Times(3)
	matchRepo.
		On("List", ctx, mock.MatchedBy(func(f match.Filter) bool { return f.From != nil && f.Until != nil })).
		Return([]match.Match{}, nil).
		Times(3)

	first, err := service.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if first.TotalMatches != 7 || first.LiveMatches != 1 || first.ScheduledMatches != 4 || first.CompletedMatches != 2 {
		t.Fatalf("unexpected dashboard: %+v", first)
	}

	if _, err := service.Dashboard(ctx); err != nil {
		t.Fatalf("cached dashboard: %v", err)
	}

	service.Invalidate(ctx)
	if _, err := service.Dashboard(ctx); err != nil {
		t.Fatalf("dashboard after invalidate: %v", err)
	}

	clock.Advance(31 * time.Second)
	if _, err := service.Dashboard(ctx); err != nil {
		t.Fatalf("dashboard after expiry: %v", err)
	}
}

func TestMatchQueryService_ListTeams(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	teamRepo := teammock.NewRepository(t)
	service, _ := newTestQueryService(t, matchmock.NewRepository(t), teamRepo, nil)

	teamRepo.On("List", ctx).Return([]team.Team{{ID: 1, Name: "Australia"}, {ID: 2, Name: "India"}}, nil).Once()

	got, err := service.ListTeams(ctx)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected teams: %+v", got)
	}
}
