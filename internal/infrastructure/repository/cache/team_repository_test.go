package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	mockteam "github.com/riskibarqy/crex-scraper/internal/mocks/domain/team"
	basecache "github.com/riskibarqy/crex-scraper/internal/platform/cache"
)

func TestTeamRepositoryListCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	next := mockteam.NewRepository(t)
	next.On("List", mock.Anything).Return([]team.Team{{ID: 1, Name: "India"}}, nil).Twice()

	repo := NewTeamRepository(next, basecache.NewStoreWithClock[[]team.Team](time.Minute, clockwork.NewFakeClock()))

	for i := 0; i < 3; i++ {
		items, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list teams: %v", err)
		}
		if len(items) != 1 || items[0].Name != "India" {
			t.Fatalf("unexpected teams: %+v", items)
		}
	}

	repo.Invalidate(ctx)
	if _, err := repo.List(ctx); err != nil {
		t.Fatalf("list teams after invalidate: %v", err)
	}
}

func TestTeamRepositoryListExpires(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	next := mockteam.NewRepository(t)
	next.On("List", mock.Anything).Return([]team.Team{{ID: 1, Name: "India"}}, nil).Twice()

	repo := NewTeamRepository(next, basecache.NewStoreWithClock[[]team.Team](time.Minute, clock))

	if _, err := repo.List(ctx); err != nil {
		t.Fatalf("list teams: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := repo.List(ctx); err != nil {
		t.Fatalf("list teams after expiry: %v", err)
	}
}

func TestTeamRepositoryListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	next := mockteam.NewRepository(t)
	next.On("List", mock.Anything).Return([]team.Team{{ID: 1, Name: "India"}}, nil).Once()

	repo := NewTeamRepository(next, basecache.NewStore[[]team.Team](time.Minute))

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	items[0].Name = "mutated"

	again, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if again[0].Name != "India" {
		t.Fatalf("cached value was mutated: %+v", again)
	}
}

func TestTeamRepositoryListDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	next := mockteam.NewRepository(t)
	next.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()
	next.On("List", mock.Anything).Return([]team.Team{{ID: 2, Name: "Australia"}}, nil).Once()

	repo := NewTeamRepository(next, basecache.NewStore[[]team.Team](time.Minute))

	if _, err := repo.List(ctx); err == nil {
		t.Fatalf("expected error")
	}
	items, err := repo.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("unexpected result: %+v %v", items, err)
	}
}
