package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	"github.com/riskibarqy/crex-scraper/internal/platform/cache"
)

const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100

	dashboardRecentLimit = 10
	dashboardCacheKey    = "dashboard:summary"
)

type MatchListQuery struct {
	Status   string
	Team     string
	Date     string
	Page     int
	PageSize int
}

type MatchPage struct {
	Matches      []match.Match
	Page         int
	PageSize     int
	TotalMatches int
	TotalPages   int
}

type MatchFeed struct {
	Matches      []match.Match
	Count        int
	TotalMatches int
}

type Dashboard struct {
	TotalMatches     int
	LiveMatches      int
	ScheduledMatches int
	CompletedMatches int
	RecentMatches    []match.Match
	TodayMatches     []match.Match
}

// MatchQueryService serves read-only match views.
type MatchQueryService struct {
	matchRepo match.Repository
	teamRepo  team.Repository
	dashboard *cache.Store[Dashboard]
	location  *time.Location
	clock     clockwork.Clock
}

func NewMatchQueryService(
	matchRepo match.Repository,
	teamRepo team.Repository,
	dashboardCache *cache.Store[Dashboard],
	location *time.Location,
	clock clockwork.Clock,
) *MatchQueryService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if location == nil {
		location = time.UTC
	}
	if dashboardCache == nil {
		dashboardCache = cache.NewStoreWithClock[Dashboard](30*time.Second, clock)
	}
	return &MatchQueryService{
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		dashboard: dashboardCache,
		location:  location,
		clock:     clock,
	}
}

func (s *MatchQueryService) ListMatches(ctx context.Context, query MatchListQuery) (MatchPage, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.ListMatches")
	defer span.End()

	filter, err := s.buildFilter(query.Status, query.Team, query.Date)
	if err != nil {
		return MatchPage{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total, err := s.matchRepo.Count(ctx, filter)
	if err != nil {
		return MatchPage{}, fmt.Errorf("count matches: %w", err)
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	items, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return MatchPage{}, fmt.Errorf("list matches: %w", err)
	}

	return MatchPage{
		Matches:      items,
		Page:         page,
		PageSize:     pageSize,
		TotalMatches: total,
		TotalPages:   (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *MatchQueryService) LiveMatches(ctx context.Context) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.LiveMatches")
	defer span.End()

	items, err := s.matchRepo.List(ctx, match.Filter{Status: match.StatusLive})
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	return items, nil
}

func (s *MatchQueryService) MatchFeed(ctx context.Context, status string, limit int) (MatchFeed, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.MatchFeed")
	defer span.End()

	filter, err := s.buildFilter(status, "", "")
	if err != nil {
		return MatchFeed{}, err
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	filter.Limit = limit

	items, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return MatchFeed{}, fmt.Errorf("list feed matches: %w", err)
	}
	total, err := s.matchRepo.Count(ctx, match.Filter{})
	if err != nil {
		return MatchFeed{}, fmt.Errorf("count matches: %w", err)
	}

	return MatchFeed{Matches: items, Count: len(items), TotalMatches: total}, nil
}

func (s *MatchQueryService) GetMatch(ctx context.Context, id int64) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.GetMatch")
	defer span.End()

	if id <= 0 {
		return match.Match{}, fmt.Errorf("%w: match id must be positive", ErrInvalidInput)
	}
	item, exists, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match id=%d: %w", id, err)
	}
	if !exists {
		return match.Match{}, matchNotFound(id)
	}
	return item, nil
}

func (s *MatchQueryService) ListTeams(ctx context.Context) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.ListTeams")
	defer span.End()

	items, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return items, nil
}

func (s *MatchQueryService) Dashboard(ctx context.Context) (Dashboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchQueryService.Dashboard")
	defer span.End()

	return s.dashboard.GetOrLoad(ctx, dashboardCacheKey, s.loadDashboard)
}

// Invalidate drops cached views after the stored matches changed.
func (s *MatchQueryService) Invalidate(ctx context.Context) {
	s.dashboard.Delete(ctx, dashboardCacheKey)
}

func (s *MatchQueryService) loadDashboard(ctx context.Context) (Dashboard, error) {
	counts, err := s.matchRepo.CountByStatus(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count matches by status: %w", err)
	}
	recent, err := s.matchRepo.List(ctx, match.Filter{Limit: dashboardRecentLimit})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list recent matches: %w", err)
	}
	from, until := match.BucketRange(match.DateBucketToday, s.clock.Now(), s.location)
	today, err := s.matchRepo.List(ctx, match.Filter{From: from, Until: until})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list today matches: %w", err)
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	return Dashboard{
		TotalMatches:     total,
		LiveMatches:      counts[match.StatusLive],
		ScheduledMatches: counts[match.StatusScheduled],
		CompletedMatches: counts[match.StatusCompleted],
		RecentMatches:    recent,
		TodayMatches:     today,
	}, nil
}

func (s *MatchQueryService) buildFilter(status, teamName, date string) (match.Filter, error) {
	filter := match.Filter{Team: strings.TrimSpace(teamName)}

	status = strings.TrimSpace(status)
	if status != "" && !strings.EqualFold(status, "all") {
		parsed, ok := match.ParseStatus(status)
		if !ok {
			return match.Filter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
		filter.Status = parsed
	}

	bucket := match.DateBucket(strings.ToLower(strings.TrimSpace(date)))
	switch bucket {
	case "", match.DateBucketAll:
	case match.DateBucketToday, match.DateBucketUpcoming, match.DateBucketPast:
		filter.From, filter.Until = match.BucketRange(bucket, s.clock.Now().UTC(), s.location)
	default:
		return match.Filter{}, fmt.Errorf("%w: unknown date filter %q", ErrInvalidInput, date)
	}

	return filter, nil
}
