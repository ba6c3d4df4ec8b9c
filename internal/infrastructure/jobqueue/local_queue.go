package jobqueue

import (
	"context"
	"fmt"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"

	"github.com/riskibarqy/crex-scraper/internal/platform/id"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

const defaultLocalWorkers = 4

var (
	ErrQueueClosed     = crerr.New("local queue closed")
	ErrExecutorMissing = crerr.New("local queue has no executor")
)

type LocalQueueConfig struct {
	Workers int
	Clock   clockwork.Clock
	IDs     id.Generator
}

// LocalQueue runs job units on an in-process worker pool. A unit whose
// dispatch id is still in flight is not submitted twice.
type LocalQueue struct {
	pool   *ants.Pool
	clock  clockwork.Clock
	ids    id.Generator
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	executor usecase.JobExecutor
	inflight map[string]*localHandle
	closed   bool
}

func NewLocalQueue(cfg LocalQueueConfig, logger *logging.Logger) (*LocalQueue, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultLocalWorkers
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.IDs == nil {
		cfg.IDs = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		pool:     pool,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]*localHandle),
	}, nil
}

// Register sets the executor units are handed to. It must be called before Submit.
func (q *LocalQueue) Register(executor usecase.JobExecutor) {
	q.mu.Lock()
	q.executor = executor
	q.mu.Unlock()
}

func (q *LocalQueue) Submit(ctx context.Context, unit usecase.JobUnit) (usecase.JobHandle, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	if q.executor == nil {
		q.mu.Unlock()
		return nil, ErrExecutorMissing
	}
	if unit.DispatchID != "" {
		if existing, ok := q.inflight[unit.DispatchID]; ok {
			q.mu.Unlock()
			return existing, nil
		}
	}

	handleID, err := q.ids.NewID()
	if err != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("generate job handle id: %w", err)
	}
	handle := &localHandle{
		id:   handleID,
		unit: unit,
		done: make(chan struct{}),
	}
	if unit.DispatchID != "" {
		q.inflight[unit.DispatchID] = handle
	}
	executor := q.executor
	q.wg.Add(1)
	q.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	if err := q.pool.Submit(func() {
		defer q.wg.Done()
		q.run(runCtx, executor, handle)
	}); err != nil {
		q.wg.Done()
		q.release(handle)
		return nil, fmt.Errorf("submit job %s to worker pool: %w", unit.Name, err)
	}
	return handle, nil
}

func (q *LocalQueue) run(ctx context.Context, executor usecase.JobExecutor, handle *localHandle) {
	defer q.release(handle)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	if handle.unit.Delay > 0 {
		timer := q.clock.NewTimer(handle.unit.Delay)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			handle.finish(usecase.JobResult{Job: handle.unit.Name}, ctx.Err())
			return
		}
	}

	var (
		result usecase.JobResult
		err    error
	)
	var catcher panics.Catcher
	catcher.Try(func() {
		result, err = executor.Run(ctx, handle.unit)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = fmt.Errorf("job %s panicked: %w", handle.unit.Name, recovered.AsError())
		q.logger.ErrorContext(ctx, "local job panicked", "job", handle.unit.Name, "dispatch_id", handle.unit.DispatchID, "error", err)
	}
	handle.finish(result, err)
}

func (q *LocalQueue) release(handle *localHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if current, ok := q.inflight[handle.unit.DispatchID]; ok && current == handle {
		delete(q.inflight, handle.unit.DispatchID)
	}
}

// Close cancels pending and running units and waits for the workers to return.
func (q *LocalQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.pool.Release()
		return nil
	case <-ctx.Done():
		q.pool.Release()
		return ctx.Err()
	}
}

type localHandle struct {
	id   string
	unit usecase.JobUnit
	done chan struct{}

	result usecase.JobResult
	err    error
}

func (h *localHandle) ID() string {
	return h.id
}

func (h *localHandle) Job() usecase.JobUnit {
	return h.unit
}

func (h *localHandle) Wait(ctx context.Context) (usecase.JobResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return usecase.JobResult{}, ctx.Err()
	}
}

func (h *localHandle) finish(result usecase.JobResult, err error) {
	h.result = result
	h.err = err
	close(h.done)
}
