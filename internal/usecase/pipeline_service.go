package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/scraper"
)

// PageFetcher retrieves raw crex pages.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	ListURL() string
	DetailURL(matchID int64) string
}

// CacheInvalidator is notified when stored matches change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

type PipelineConfig struct {
	LiveWindowBefore time.Duration
	LiveWindowAfter  time.Duration
}

type ListSyncResult struct {
	MatchesReconciled int `json:"matches_reconciled"`
	MatchesCreated    int `json:"matches_created"`
	Rejected          int `json:"rejected"`
	Failed            int `json:"failed"`
}

type LiveRefreshResult struct {
	MatchesChecked int `json:"matches_checked"`
	MatchesUpdated int `json:"matches_updated"`
	Failed         int `json:"failed"`
}

type DetailResult struct {
	Match         match.Match         `json:"-"`
	Detail        match.DetailPayload `json:"detail"`
	StatusChanged bool                `json:"status_changed"`
}

// PipelineService runs the scrape, extract and reconcile steps. Each call is
// one sequential unit of work.
type PipelineService struct {
	fetcher    PageFetcher
	extractor  *scraper.Extractor
	reconciler *ReconcileService
	matchRepo  match.Repository
	cache      CacheInvalidator
	cfg        PipelineConfig
	clock      clockwork.Clock
	logger     *logging.Logger
}

func NewPipelineService(
	fetcher PageFetcher,
	extractor *scraper.Extractor,
	reconciler *ReconcileService,
	matchRepo match.Repository,
	cache CacheInvalidator,
	cfg PipelineConfig,
	clock clockwork.Clock,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.LiveWindowBefore <= 0 {
		cfg.LiveWindowBefore = 6 * time.Hour
	}
	if cfg.LiveWindowAfter <= 0 {
		cfg.LiveWindowAfter = time.Hour
	}
	if reconciler == nil {
		reconciler = NewReconcileService(matchRepo, logger)
	}

	return &PipelineService{
		fetcher:    fetcher,
		extractor:  extractor,
		reconciler: reconciler,
		matchRepo:  matchRepo,
		cache:      cache,
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
	}
}

// RunListSync scrapes the fixture list and reconciles every candidate on it.
func (s *PipelineService) RunListSync(ctx context.Context) (ListSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RunListSync")
	defer span.End()

	listURL := s.fetcher.ListURL()
	body, err := s.fetcher.Fetch(ctx, listURL)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch match list failed", "url", listURL, "error", err)
		return ListSyncResult{}, err
	}
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		s.logger.ErrorContext(ctx, "parse match list failed", "url", listURL, "error", err)
		return ListSyncResult{}, err
	}

	extraction := s.extractor.ExtractListPage(doc, s.clock.Now())
	result := ListSyncResult{Rejected: len(extraction.Rejected)}
	for _, candidate := range extraction.Candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reconciled, err := s.reconciler.Reconcile(ctx, candidate)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "reconcile match candidate failed",
				"url", candidate.MatchURL,
				"home_team", candidate.HomeTeam,
				"away_team", candidate.AwayTeam,
				"match_date", candidate.MatchDate,
				"error", err,
			)
			continue
		}
		result.MatchesReconciled++
		if reconciled.Created {
			result.MatchesCreated++
		}
	}

	if result.MatchesCreated > 0 {
		s.invalidate(ctx)
	}
	s.logger.InfoContext(ctx, "match list sync finished",
		"containers", extraction.Containers,
		"reconciled", result.MatchesReconciled,
		"created", result.MatchesCreated,
		"rejected", result.Rejected,
		"failed", result.Failed,
	)
	return result, nil
}

// RunLiveRefresh marks matches around now as live when their detail page shows a live section.
func (s *PipelineService) RunLiveRefresh(ctx context.Context) (LiveRefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RunLiveRefresh")
	defer span.End()

	now := s.clock.Now().UTC()
	items, err := s.matchRepo.ListByDateRange(ctx, now.Add(-s.cfg.LiveWindowBefore), now.Add(s.cfg.LiveWindowAfter))
	if err != nil {
		return LiveRefreshResult{}, fmt.Errorf("list matches in live window: %w", err)
	}

	result := LiveRefreshResult{}
	changed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.MatchesChecked++

		_, live, err := s.refreshOne(ctx, item)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "refresh live match failed",
				"match_id", item.ID,
				"url", s.detailURL(item),
				"home_team", item.HomeTeam.Name,
				"away_team", item.AwayTeam.Name,
				"error", err,
			)
			continue
		}
		if live {
			result.MatchesUpdated++
			if item.Status != match.StatusLive {
				changed++
			}
		}
	}

	if changed > 0 {
		s.invalidate(ctx)
	}
	s.logger.InfoContext(ctx, "live refresh finished",
		"checked", result.MatchesChecked,
		"updated", result.MatchesUpdated,
		"failed", result.Failed,
	)
	return result, nil
}

// ScrapeDetail fetches one match's detail page and applies the live status rule to it.
func (s *PipelineService) ScrapeDetail(ctx context.Context, matchID int64) (DetailResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.ScrapeDetail", attribute.Int64("match.id", matchID))
	defer span.End()

	if matchID <= 0 {
		return DetailResult{}, fmt.Errorf("%w: match id must be positive", ErrInvalidInput)
	}

	item, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return DetailResult{}, fmt.Errorf("get match id=%d: %w", matchID, err)
	}
	if !exists {
		return DetailResult{}, matchNotFound(matchID)
	}

	detail, live, err := s.refreshOne(ctx, item)
	if err != nil {
		return DetailResult{}, err
	}
	changed := live && item.Status != match.StatusLive
	if live {
		item.Status = match.StatusLive
	}
	if changed {
		s.invalidate(ctx)
	}
	return DetailResult{Match: item, Detail: detail, StatusChanged: changed}, nil
}

// refreshOne reports whether the detail page carried live data; the status is written only on the transition to Live.
func (s *PipelineService) refreshOne(ctx context.Context, item match.Match) (match.DetailPayload, bool, error) {
	detailURL := s.detailURL(item)
	body, err := s.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return match.DetailPayload{}, false, err
	}
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		return match.DetailPayload{}, false, err
	}

	detail := s.extractor.ExtractDetail(doc)
	detail.URL = detailURL
	if detail.Live.IsEmpty() {
		return detail, false, nil
	}
	if item.Status == match.StatusLive {
		return detail, true, nil
	}

	if err := s.matchRepo.UpdateStatus(ctx, item.ID, match.StatusLive); err != nil {
		return detail, false, fmt.Errorf("update match status id=%d: %w", item.ID, err)
	}
	return detail, true, nil
}

func (s *PipelineService) detailURL(item match.Match) string {
	if item.MatchURL != "" {
		return item.MatchURL
	}
	return s.fetcher.DetailURL(item.ID)
}

func (s *PipelineService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
