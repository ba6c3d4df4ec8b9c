package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	"github.com/riskibarqy/crex-scraper/internal/infrastructure/repository/memory"
	matchmock "github.com/riskibarqy/crex-scraper/internal/mocks/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/scraper"
)

const testBaseURL = "https://crex.com"

var pipelineNow = time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, &FetchError{URL: url, Attempts: 1, StatusCode: 404, Err: errors.New("not found")}
	}
	return []byte(page), nil
}

func (f *fakeFetcher) ListURL() string {
	return testBaseURL + "/fixtures/match-list"
}

func (f *fakeFetcher) DetailURL(matchID int64) string {
	return fmt.Sprintf("%s/match/%d", testBaseURL, matchID)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func newTestPipeline(t *testing.T, fetcher PageFetcher, repo match.Repository, cache CacheInvalidator) *PipelineService {
	t.Helper()

	extractor, err := scraper.NewExtractor(scraper.ExtractorConfig{BaseURL: testBaseURL})
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return NewPipelineService(fetcher, extractor, nil, repo, cache, PipelineConfig{}, clockwork.NewFakeClockAt(pipelineNow), nil)
}

const listPage = `
<html><body>
<div class="match-item">
  <a href="/match/ind-vs-aus">details</a>
  <span class="team-name">India</span><span class="team-name">Australia</span>
  <span class="match-date">Wed, 16 Jul 2025</span><span class="match-time">7:30 PM</span>
</div>
<div class="match-item">
  <span class="team-name">India</span><span class="team-name">Australia</span>
  <span class="match-date">Wed, 16 Jul 2025</span><span class="match-time">7:30 PM</span>
</div>
<div class="match-item">
  <span class="team-name">England</span><span class="team-name">england</span>
</div>
<div class="match-item">no fixture here</div>
</body></html>`

func TestPipelineService_RunListSync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.pages[fetcher.ListURL()] = listPage
	store := memory.NewStore()
	invalidator := &countingInvalidator{}
	service := newTestPipeline(t, fetcher, store.Matches(), invalidator)

	got, err := service.RunListSync(ctx)
	if err != nil {
		t.Fatalf("run list sync: %v", err)
	}
	want := ListSyncResult{MatchesReconciled: 2, MatchesCreated: 1, Rejected: 1, Failed: 1}
	if got != want {
		t.Fatalf("unexpected result: got=%+v want=%+v", got, want)
	}
	if invalidator.calls != 1 {
		t.Fatalf("expected cache invalidation once, got %d", invalidator.calls)
	}

	again, err := service.RunListSync(ctx)
	if err != nil {
		t.Fatalf("run list sync again: %v", err)
	}
	if again.MatchesCreated != 0 || again.MatchesReconciled != 2 {
		t.Fatalf("second sync must not create rows: %+v", again)
	}

	stored, _ := store.Matches().List(ctx, match.Filter{})
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored match, got %d", len(stored))
	}
	if want := time.Date(2025, 7, 16, 19, 30, 0, 0, time.UTC); !stored[0].MatchDate.Equal(want) {
		t.Fatalf("unexpected match date %s", stored[0].MatchDate)
	}
	if stored[0].MatchURL != testBaseURL+"/match/ind-vs-aus" {
		t.Fatalf("unexpected match url %q", stored[0].MatchURL)
	}
}

func TestPipelineService_RunListSyncFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs[fetcher.ListURL()] = &FetchError{URL: fetcher.ListURL(), Attempts: 4, StatusCode: 503}
	repo := matchmock.NewRepository(t)
	service := newTestPipeline(t, fetcher, repo, nil)

	got, err := service.RunListSync(context.Background())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if got != (ListSyncResult{}) {
		t.Fatalf("expected zero result, got %+v", got)
	}
}

const liveDetailPage = `
<div class="live-section">
  <div class="score"><span class="team">IND</span><span class="runs">120/2</span></div>
  <div class="current-over">18.4</div>
</div>`

func TestPipelineService_RunLiveRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.pages[testBaseURL+"/match/ind-vs-aus"] = liveDetailPage
	fetcher.errs[fetcher.DetailURL(2)] = &FetchError{URL: fetcher.DetailURL(2), Attempts: 4}
	fetcher.pages[fetcher.DetailURL(3)] = `<div class="match-info"></div>`

	repo := matchmock.NewRepository(t)
	invalidator := &countingInvalidator{}
	service := newTestPipeline(t, fetcher, repo, invalidator)

	items := []match.Match{
		{ID: 1, HomeTeam: team.Team{ID: 1, Name: "India"}, AwayTeam: team.Team{ID: 2, Name: "Australia"}, MatchURL: testBaseURL + "/match/ind-vs-aus", Status: match.StatusScheduled},
		{ID: 2, HomeTeam: team.Team{ID: 3, Name: "England"}, AwayTeam: team.Team{ID: 4, Name: "Pakistan"}, Status: match.StatusScheduled},
		{ID: 3, HomeTeam: team.Team{ID: 5, Name: "Nepal"}, AwayTeam: team.Team{ID: 6, Name: "Oman"}, Status: match.StatusScheduled},
	}
	repo.
		On("ListByDateRange", ctx,
			mock.MatchedBy(func(from time.Time) bool { return from.Equal(pipelineNow.Add(-6 * time.Hour)) }),
			mock.MatchedBy(func(to time.Time) bool { return to.Equal(pipelineNow.Add(time.Hour)) }),
		).
		Return(items, nil).
		Once()
	repo.On("UpdateStatus", ctx, int64(1), match.StatusLive).Return(nil).Once()

	got, err := service.RunLiveRefresh(ctx)
	if err != nil {
		t.Fatalf("run live refresh: %v", err)
	}
	want := LiveRefreshResult{MatchesChecked: 3, MatchesUpdated: 1, Failed: 1}
	if got != want {
		t.Fatalf("unexpected result: got=%+v want=%+v", got, want)
	}
	if invalidator.calls != 1 {
		t.Fatalf("expected cache invalidation once, got %d", invalidator.calls)
	}
}

func TestPipelineService_ScrapeDetail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.pages[fetcher.DetailURL(9)] = liveDetailPage
	repo := matchmock.NewRepository(t)
	service := newTestPipeline(t, fetcher, repo, nil)

	repo.On("GetByID", ctx, int64(9)).Return(match.Match{ID: 9, Status: match.StatusScheduled}, true, nil).Once()
	repo.On("UpdateStatus", ctx, int64(9), match.StatusLive).Return(nil).Once()

	got, err := service.ScrapeDetail(ctx, 9)
	if err != nil {
		t.Fatalf("scrape detail: %v", err)
	}
	if !got.StatusChanged || got.Match.Status != match.StatusLive {
		t.Fatalf("expected status change to Live, got %+v", got)
	}
	if got.Detail.URL != fetcher.DetailURL(9) || got.Detail.Live.CurrentOver != "18.4" {
		t.Fatalf("unexpected detail: %+v", got.Detail)
	}
}

func TestPipelineService_ScrapeDetailAlreadyLive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.pages[fetcher.DetailURL(9)] = liveDetailPage
	repo := matchmock.NewRepository(t)
	invalidator := &countingInvalidator{}
	service := newTestPipeline(t, fetcher, repo, invalidator)

	repo.On("GetByID", ctx, int64(9)).Return(match.Match{ID: 9, Status: match.StatusLive}, true, nil).Once()

	got, err := service.ScrapeDetail(ctx, 9)
	if err != nil {
		t.Fatalf("scrape detail: %v", err)
	}
	if got.StatusChanged || got.Match.Status != match.StatusLive {
		t.Fatalf("expected live match without status change, got %+v", got)
	}
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	if invalidator.calls != 0 {
		t.Fatalf("expected no cache invalidation, got %d", invalidator.calls)
	}
}

func TestPipelineService_ScrapeDetailUnknownMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := matchmock.NewRepository(t)
	service := newTestPipeline(t, newFakeFetcher(), repo, nil)

	repo.On("GetByID", ctx, int64(404)).Return(match.Match{}, false, nil).Once()

	_, err := service.ScrapeDetail(ctx, 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.ID != "404" {
		t.Fatalf("expected NotFoundError for 404, got %v", err)
	}
}

func fixtureItem(home, away, href string) string {
	return fmt.Sprintf(`
<div class="match-item">
  <a href="%s">details</a>
  <span class="team-name">%s</span><span class="team-name">%s</span>
  <span class="match-date">Wed, 16 Jul 2025</span><span class="match-time">7:30 PM</span>
</div>`, href, home, away)
}

func TestPipelineService_RunListSyncCounts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		page   string
		want   ListSyncResult
		stored int
	}{
		{
			name: "three valid containers and one malformed",
			page: "<html><body>" +
				fixtureItem("India", "Australia", "/match/ind-vs-aus") +
				fixtureItem("England", "Pakistan", "/match/eng-vs-pak") +
				fixtureItem("Nepal", "Oman", "/match/nep-vs-oma") +
				`<div class="match-item"><span class="team-name">Kenya</span></div>` +
				"</body></html>",
			want:   ListSyncResult{MatchesReconciled: 3, MatchesCreated: 3, Rejected: 1},
			stored: 3,
		},
		{
			name:   "duplicates and same-team fixtures",
			page:   listPage,
			want:   ListSyncResult{MatchesReconciled: 2, MatchesCreated: 1, Rejected: 1, Failed: 1},
			stored: 1,
		},
		{
			name:   "page without fixtures",
			page:   "<html><body><p>no matches scheduled</p></body></html>",
			want:   ListSyncResult{},
			stored: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			fetcher := newFakeFetcher()
			fetcher.pages[fetcher.ListURL()] = tc.page
			store := memory.NewStore()
			service := newTestPipeline(t, fetcher, store.Matches(), nil)

			got, err := service.RunListSync(ctx)
			if err != nil {
				t.Fatalf("run list sync: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected result: got=%+v want=%+v", got, tc.want)
			}
			stored, err := store.Matches().List(ctx, match.Filter{})
			if err != nil {
				t.Fatalf("list stored matches: %v", err)
			}
			if len(stored) != tc.stored {
				t.Fatalf("expected %d stored matches, got %d", tc.stored, len(stored))
			}
		})
	}
}

func TestPipelineService_RunLiveRefreshWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		offset     time.Duration
		status     match.Status
		wantStatus match.Status
		wantFetch  bool
	}{
		{name: "seven hours ago", offset: -7 * time.Hour, status: match.StatusScheduled, wantStatus: match.StatusScheduled},
		{name: "two hours ahead", offset: 2 * time.Hour, status: match.StatusScheduled, wantStatus: match.StatusScheduled},
		{name: "window start", offset: -6 * time.Hour, status: match.StatusScheduled, wantStatus: match.StatusLive, wantFetch: true},
		{name: "window end", offset: time.Hour, status: match.StatusScheduled, wantStatus: match.StatusLive, wantFetch: true},
		{name: "already live", offset: 0, status: match.StatusLive, wantStatus: match.StatusLive, wantFetch: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := memory.NewStore()
			created, _, err := store.Matches().ReconcileCandidate(ctx, match.Candidate{
				HomeTeam:  "India",
				AwayTeam:  "Australia",
				MatchDate: pipelineNow.Add(tc.offset),
				Status:    tc.status,
				MatchURL:  testBaseURL + "/match/ind-vs-aus",
			})
			if err != nil {
				t.Fatalf("seed match: %v", err)
			}

			fetcher := newFakeFetcher()
			fetcher.pages[created.MatchURL] = liveDetailPage
			invalidator := &countingInvalidator{}
			service := newTestPipeline(t, fetcher, store.Matches(), invalidator)

			got, err := service.RunLiveRefresh(ctx)
			if err != nil {
				t.Fatalf("run live refresh: %v", err)
			}
			if fetched := len(fetcher.calls) > 0; fetched != tc.wantFetch {
				t.Fatalf("expected fetch=%v, calls=%v", tc.wantFetch, fetcher.calls)
			}
			if tc.wantFetch && (got.MatchesChecked != 1 || got.MatchesUpdated != 1) {
				t.Fatalf("unexpected result for match in window: %+v", got)
			}
			if !tc.wantFetch && got != (LiveRefreshResult{}) {
				t.Fatalf("expected match outside window to be skipped, got %+v", got)
			}

			stored, ok, err := store.Matches().GetByID(ctx, created.ID)
			if err != nil || !ok {
				t.Fatalf("get match: ok=%v err=%v", ok, err)
			}
			if stored.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, stored.Status)
			}
			wantInvalidations := 0
			if tc.status != tc.wantStatus {
				wantInvalidations = 1
			}
			if invalidator.calls != wantInvalidations {
				t.Fatalf("expected %d cache invalidations, got %d", wantInvalidations, invalidator.calls)
			}
		})
	}
}
