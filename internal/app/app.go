package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/crex-scraper/external/crex"
	"github.com/riskibarqy/crex-scraper/internal/config"
	"github.com/riskibarqy/crex-scraper/internal/domain/jobscheduler"
	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/domain/team"
	"github.com/riskibarqy/crex-scraper/internal/infrastructure/jobqueue"
	cachedrepo "github.com/riskibarqy/crex-scraper/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/crex-scraper/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/crex-scraper/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/crex-scraper/internal/interfaces/httpapi"
	"github.com/riskibarqy/crex-scraper/internal/platform/cache"
	"github.com/riskibarqy/crex-scraper/internal/platform/id"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/platform/resilience"
	"github.com/riskibarqy/crex-scraper/internal/scraper"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

// App owns every long lived dependency of the service.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	db         *sqlx.DB
	localQueue *jobqueue.LocalQueue

	Queries      *usecase.MatchQueryService
	Pipeline     *usecase.PipelineService
	Orchestrator *usecase.JobOrchestratorService
}

// invalidators fans a change notification out to every read cache.
type invalidators []usecase.CacheInvalidator

func (c invalidators) Invalidate(ctx context.Context) {
	for _, item := range c {
		item.Invalidate(ctx)
	}
}

type repositories struct {
	teams      team.Repository
	matches    match.Repository
	dispatches jobscheduler.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	clock := clockwork.NewRealClock()
	a := &App{cfg: cfg, logger: logger}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	client := crex.NewClient(crex.ClientConfig{
		BaseURL:      cfg.ScraperBaseURL,
		UserAgent:    cfg.ScraperUserAgent,
		Timeout:      cfg.ScraperHTTPTimeout,
		MaxRetries:   cfg.ScraperMaxRetries,
		BackoffBase:  cfg.ScraperBackoffBase,
		RateLimitRPS: cfg.ScraperRateLimitRPS,
		Logger:       logger.Named("crex"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.CircuitBreakerEnabled,
			FailureThreshold: cfg.CircuitBreakerFailureCount,
			OpenTimeout:      cfg.CircuitBreakerOpenTimeout,
			HalfOpenMaxReq:   cfg.CircuitBreakerHalfOpenMaxReq,
		},
		Clock: clock,
	})

	extractor, err := scraper.NewExtractor(scraper.ExtractorConfig{
		BaseURL:    cfg.ScraperBaseURL,
		Normalizer: scraper.NewNormalizer(cfg.ScraperTimezone, logger),
		Logger:     logger.Named("scraper"),
	})
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	teams := cachedrepo.NewTeamRepository(repos.teams, cache.NewStoreWithClock[[]team.Team](cfg.DashboardCacheTTL, clock))
	a.Queries = usecase.NewMatchQueryService(
		repos.matches,
		teams,
		cache.NewStoreWithClock[usecase.Dashboard](cfg.DashboardCacheTTL, clock),
		cfg.ScraperTimezone,
		clock,
	)
	a.Pipeline = usecase.NewPipelineService(
		client,
		extractor,
		usecase.NewReconcileService(repos.matches, logger),
		repos.matches,
		invalidators{a.Queries, teams},
		usecase.PipelineConfig{
			LiveWindowBefore: cfg.LiveWindowBefore,
			LiveWindowAfter:  cfg.LiveWindowAfter,
		},
		clock,
		logger,
	)

	queue, err := a.buildQueue(clock)
	if err != nil {
		a.closeDB()
		return nil, err
	}

	a.Orchestrator = usecase.NewJobOrchestratorService(
		a.Pipeline,
		repos.matches,
		queue,
		repos.dispatches,
		invalidators{a.Queries, teams},
		usecase.JobOrchestratorConfig{
			LiveTriggerLead: cfg.LiveTriggerLead,
			Retention:       cfg.MatchRetention,
		},
		clock,
		logger,
	)
	if a.localQueue != nil {
		a.localQueue.Register(a.Orchestrator)
	}

	logger.Info("app initialized",
		"storage_driver", cfg.StorageDriver,
		"job_queue_driver", cfg.JobQueueDriver,
		"scraper_base_url", cfg.ScraperBaseURL,
	)

	return a, nil
}

func (a *App) openRepositories(ctx context.Context) (repositories, error) {
	switch a.cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		return repositories{
			teams:      store.Teams(),
			matches:    store.Matches(),
			dispatches: memory.NewJobDispatchRepository(),
		}, nil
	default:
		db, err := OpenDB(ctx, a.cfg)
		if err != nil {
			return repositories{}, err
		}
		a.db = db
		return repositories{
			teams:      postgres.NewTeamRepository(db),
			matches:    postgres.NewMatchRepository(db),
			dispatches: postgres.NewJobDispatchRepository(db),
		}, nil
	}
}

func (a *App) buildQueue(clock clockwork.Clock) (usecase.WorkQueue, error) {
	switch a.cfg.JobQueueDriver {
	case config.JobQueueDriverQStash:
		return jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          a.cfg.QStashBaseURL,
			Token:            a.cfg.QStashToken,
			TargetBaseURL:    a.cfg.InternalJobBaseURL,
			Retries:          a.cfg.QStashRetries,
			InternalJobToken: a.cfg.InternalJobToken,
			Timeout:          a.cfg.QStashTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          a.cfg.QStashCircuitEnabled,
				FailureThreshold: a.cfg.QStashCircuitFailureCount,
				OpenTimeout:      a.cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   a.cfg.QStashCircuitHalfOpenMaxReq,
			},
			Clock: clock,
		}, a.logger.Named("qstash")), nil
	case config.JobQueueDriverNoop:
		return usecase.NewNoopWorkQueue(), nil
	default:
		queue, err := jobqueue.NewLocalQueue(jobqueue.LocalQueueConfig{
			Workers: a.cfg.LocalQueueWorkers,
			Clock:   clock,
			IDs:     id.NewUUIDGenerator(),
		}, a.logger.Named("jobqueue"))
		if err != nil {
			return nil, fmt.Errorf("build local queue: %w", err)
		}
		a.localQueue = queue
		return queue, nil
	}
}

// HTTPServer builds the API server around the wired services.
func (a *App) HTTPServer() (*http.Server, error) {
	if a.cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(a.Queries, a.Pipeline, a.Orchestrator, a.logger)
	router := httpapi.NewRouter(
		handler,
		a.logger.Named("http"),
		a.cfg.SwaggerEnabled,
		a.cfg.CORSAllowedOrigins,
		a.cfg.InternalJobToken,
	)

	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}, nil
}

// Close drains queued jobs before releasing the database pool.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.localQueue != nil {
		if err := a.localQueue.Close(ctx); err != nil {
			firstErr = fmt.Errorf("close local queue: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close postgres: %w", err)
		}
	}
	return firstErr
}

func (a *App) closeDB() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
