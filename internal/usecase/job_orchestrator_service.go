package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/crex-scraper/internal/domain/jobscheduler"
	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
)

type JobName string

const (
	JobSyncMatchList JobName = "sync-match-list"
	JobRefreshLive   JobName = "refresh-live"
	JobScrapeDetail  JobName = "scrape-detail"
	JobTriggerLive   JobName = "trigger-live"
	JobCleanup       JobName = "cleanup"
)

const internalJobPathPrefix = "/v1/internal/jobs/"

var jobNames = []JobName{JobSyncMatchList, JobRefreshLive, JobScrapeDetail, JobTriggerLive, JobCleanup}

func ParseJobName(value string) (JobName, bool) {
	value = strings.TrimSpace(value)
	for _, name := range jobNames {
		if string(name) == value {
			return name, true
		}
	}
	return "", false
}

// Path is the internal endpoint that executes the job when delivered remotely.
func (n JobName) Path() string {
	return internalJobPathPrefix + string(n)
}

// JobUnit is one dispatched piece of work. It is also the remote delivery body.
type JobUnit struct {
	Name       JobName       `json:"job"`
	MatchID    int64         `json:"match_id,omitempty"`
	DispatchID string        `json:"dispatch_id,omitempty"`
	Delay      time.Duration `json:"-"`
}

type JobResult struct {
	Job         JobName            `json:"job"`
	DispatchID  string             `json:"dispatch_id,omitempty"`
	ListSync    *ListSyncResult    `json:"list_sync,omitempty"`
	LiveRefresh *LiveRefreshResult `json:"live_refresh,omitempty"`
	Detail      *DetailResult      `json:"detail,omitempty"`
	Queued      int                `json:"queued,omitempty"`
	Deleted     int                `json:"deleted,omitempty"`
}

type JobHandle interface {
	ID() string
	Job() JobUnit
	// Wait blocks until the unit finished. Remote handles return immediately.
	Wait(ctx context.Context) (JobResult, error)
}

type WorkQueue interface {
	Submit(ctx context.Context, unit JobUnit) (JobHandle, error)
}

// JobExecutor runs a unit in process. Local queues call back into it.
type JobExecutor interface {
	Run(ctx context.Context, unit JobUnit) (JobResult, error)
}

type noopWorkQueue struct{}

type noopJobHandle struct {
	unit JobUnit
}

func (noopWorkQueue) Submit(_ context.Context, unit JobUnit) (JobHandle, error) {
	return noopJobHandle{unit: unit}, nil
}

func (h noopJobHandle) ID() string {
	return h.unit.DispatchID
}

func (h noopJobHandle) Job() JobUnit {
	return h.unit
}

func (h noopJobHandle) Wait(_ context.Context) (JobResult, error) {
	return JobResult{Job: h.unit.Name, DispatchID: h.unit.DispatchID}, nil
}

func NewNoopWorkQueue() WorkQueue {
	return noopWorkQueue{}
}

// MatchPipeline is the scraping work the orchestrator dispatches.
type MatchPipeline interface {
	RunListSync(ctx context.Context) (ListSyncResult, error)
	RunLiveRefresh(ctx context.Context) (LiveRefreshResult, error)
	ScrapeDetail(ctx context.Context, matchID int64) (DetailResult, error)
}

type JobOrchestratorConfig struct {
	LiveTriggerLead time.Duration
	Retention       time.Duration
	TriggerBucket   time.Duration
	DetailBucket    time.Duration
}

type JobOrchestratorService struct {
	pipeline     MatchPipeline
	matchRepo    match.Repository
	queue        WorkQueue
	dispatchRepo jobscheduler.Repository
	cache        CacheInvalidator
	cfg          JobOrchestratorConfig
	clock        clockwork.Clock
	logger       *logging.Logger
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	pipeline MatchPipeline,
	matchRepo match.Repository,
	queue WorkQueue,
	dispatchRepo jobscheduler.Repository,
	cache CacheInvalidator,
	cfg JobOrchestratorConfig,
	clock clockwork.Clock,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopWorkQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.LiveTriggerLead <= 0 {
		cfg.LiveTriggerLead = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.TriggerBucket <= 0 {
		cfg.TriggerBucket = time.Minute
	}
	if cfg.DetailBucket <= 0 {
		cfg.DetailBucket = time.Hour
	}

	return &JobOrchestratorService{
		pipeline:     pipeline,
		matchRepo:    matchRepo,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cache:        cache,
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
	}
}

// Trigger maps a user-facing task type onto a dispatched job.
func (s *JobOrchestratorService) Trigger(ctx context.Context, taskType string) (JobHandle, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.Trigger")
	defer span.End()

	var name JobName
	switch strings.TrimSpace(taskType) {
	case "match_list":
		name = JobSyncMatchList
	case "live_matches":
		name = JobRefreshLive
	default:
		return nil, fmt.Errorf("%w: invalid task type %q", ErrInvalidInput, taskType)
	}

	return s.dispatch(ctx, name, 0, 0, s.cfg.TriggerBucket)
}

// Dispatch submits a job by name, used by schedulers and the command line.
func (s *JobOrchestratorService) Dispatch(ctx context.Context, name JobName, matchID int64) (JobHandle, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.Dispatch",
		attribute.String("job.name", string(name)),
		attribute.Int64("match.id", matchID),
	)
	defer span.End()

	if _, ok := ParseJobName(string(name)); !ok {
		return nil, fmt.Errorf("%w: unknown job %q", ErrInvalidInput, name)
	}
	if name == JobScrapeDetail && matchID <= 0 {
		return nil, fmt.Errorf("%w: match id is required for %s", ErrInvalidInput, name)
	}
	bucket := s.cfg.TriggerBucket
	if name == JobScrapeDetail {
		bucket = s.cfg.DetailBucket
	}
	return s.dispatch(ctx, name, matchID, 0, bucket)
}

// Run executes one unit and records its outcome in the dispatch ledger.
func (s *JobOrchestratorService) Run(ctx context.Context, unit JobUnit) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.Run",
		attribute.String("job.name", string(unit.Name)),
		attribute.String("job.dispatch_id", unit.DispatchID),
	)
	defer span.End()

	if _, ok := ParseJobName(string(unit.Name)); !ok {
		return JobResult{}, fmt.Errorf("%w: unknown job %q", ErrInvalidInput, unit.Name)
	}
	if strings.TrimSpace(unit.DispatchID) == "" {
		unit.DispatchID = dedupKey(string(unit.Name), matchSegment(unit.MatchID), s.clock.Now(), s.cfg.TriggerBucket)
	}

	result, err := s.execute(ctx, unit)
	result.Job = unit.Name
	result.DispatchID = unit.DispatchID

	event := jobscheduler.DispatchEvent{
		DispatchID: unit.DispatchID,
		JobName:    string(unit.Name),
		JobPath:    unit.Name.Path(),
		MatchID:    unit.MatchID,
		Status:     jobscheduler.StatusCompleted,
		Payload:    unitPayload(unit),
		OccurredAt: s.clock.Now().UTC(),
	}
	if err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		s.recordDispatchEvent(ctx, event)
		return result, fmt.Errorf("run job %s dispatch_id=%s: %w", unit.Name, unit.DispatchID, err)
	}
	s.recordDispatchEvent(ctx, event)
	return result, nil
}

func (s *JobOrchestratorService) execute(ctx context.Context, unit JobUnit) (JobResult, error) {
	switch unit.Name {
	case JobSyncMatchList:
		out, err := s.pipeline.RunListSync(ctx)
		return JobResult{ListSync: &out}, err
	case JobRefreshLive:
		out, err := s.pipeline.RunLiveRefresh(ctx)
		return JobResult{LiveRefresh: &out}, err
	case JobScrapeDetail:
		out, err := s.pipeline.ScrapeDetail(ctx, unit.MatchID)
		if err != nil {
			return JobResult{}, err
		}
		return JobResult{Detail: &out}, nil
	case JobTriggerLive:
		queued, err := s.TriggerLiveScraping(ctx)
		return JobResult{Queued: queued}, err
	case JobCleanup:
		deleted, err := s.CleanupOldMatches(ctx)
		return JobResult{Deleted: deleted}, err
	default:
		return JobResult{}, fmt.Errorf("%w: unknown job %q", ErrInvalidInput, unit.Name)
	}
}

// TriggerLiveScraping queues a detail scrape for every scheduled match starting within the lead window.
func (s *JobOrchestratorService) TriggerLiveScraping(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.TriggerLiveScraping")
	defer span.End()

	now := s.clock.Now().UTC()
	items, err := s.matchRepo.ListByDateRange(ctx, now, now.Add(s.cfg.LiveTriggerLead), match.StatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("list upcoming matches for live trigger: %w", err)
	}

	queued := 0
	for _, item := range items {
		if _, err := s.dispatch(ctx, JobScrapeDetail, item.ID, 0, s.cfg.DetailBucket); err != nil {
			s.logger.WarnContext(ctx, "queue live detail scrape failed", "match_id", item.ID, "error", err)
			continue
		}
		queued++
	}

	s.logger.InfoContext(ctx, "live scraping triggered", "candidates", len(items), "queued", queued)
	return queued, nil
}

// CleanupOldMatches removes matches older than the retention period.
func (s *JobOrchestratorService) CleanupOldMatches(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.CleanupOldMatches")
	defer span.End()

	cutoff := s.clock.Now().UTC().Add(-s.cfg.Retention)
	deleted, err := s.matchRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete matches older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 && s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	s.logger.InfoContext(ctx, "old matches cleaned up", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

func (s *JobOrchestratorService) RecentDispatches(ctx context.Context, limit int) ([]jobscheduler.DispatchEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RecentDispatches")
	defer span.End()

	if s.dispatchRepo == nil {
		return []jobscheduler.DispatchEvent{}, nil
	}
	items, err := s.dispatchRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent job dispatches: %w", err)
	}
	return items, nil
}

func (s *JobOrchestratorService) dispatch(ctx context.Context, name JobName, matchID int64, delay time.Duration, bucket time.Duration) (JobHandle, error) {
	now := s.clock.Now().UTC()
	unit := JobUnit{
		Name:       name,
		MatchID:    matchID,
		DispatchID: dedupKey(string(name), matchSegment(matchID), now.Add(delay), bucket),
		Delay:      delay,
	}
	event := jobscheduler.DispatchEvent{
		DispatchID: unit.DispatchID,
		JobName:    string(name),
		JobPath:    name.Path(),
		MatchID:    matchID,
		Status:     jobscheduler.StatusSent,
		Payload:    unitPayload(unit),
		OccurredAt: now,
	}

	// Recorded before Submit: a local worker may finish the unit before Submit returns.
	s.recordDispatchEvent(ctx, event)

	handle, err := s.queue.Submit(ctx, unit)
	if err != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = err.Error()
		event.OccurredAt = s.clock.Now().UTC()
		s.recordDispatchEvent(ctx, event)
		return nil, fmt.Errorf("enqueue %s dispatch_id=%s: %w", name, unit.DispatchID, err)
	}
	return handle, nil
}

func matchSegment(matchID int64) string {
	if matchID <= 0 {
		return "all"
	}
	return strconv.FormatInt(matchID, 10)
}

func unitPayload(unit JobUnit) map[string]any {
	payload := map[string]any{
		"job":         string(unit.Name),
		"dispatch_id": unit.DispatchID,
	}
	if unit.MatchID > 0 {
		payload["match_id"] = unit.MatchID
	}
	return payload
}

func dedupKey(prefix, id string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	id = sanitizeDedupSegment(id)
	return prefix + "-" + id + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
