package work

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidChannelSize = errors.New("invalid channel size")
	ErrPoolStopped        = errors.New("worker pool has been stopped")
	ErrTaskTimeout        = errors.New("task execution timeout")
)

// TaskResult carries one finished task's outcome and timing
type TaskResult[T any] struct {
	TaskID    string
	Result    T
	Error     error
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// IsSuccess reports whether the task completed without error
func (tr *TaskResult[T]) IsSuccess() bool {
	return tr.Error == nil
}

// Executor is a unit of work the pool can run. Timeout of 0 means the pool
// default applies.
type Executor[T any] interface {
	ExecutorID() string
	Execute(ctx context.Context) (T, error)
	OnError(error)
	Timeout() time.Duration
}

// PoolConfig sizes a pool and its timeouts
type PoolConfig struct {
	NumWorkers      int
	TaskChannelSize int
	ResultChanSize  int
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Pool runs Executors on a fixed set of workers, bounding how many scrape
// runs execute at once. Outcomes land on the Results channel.
type Pool[T any] struct {
	config   PoolConfig
	tasks    chan Executor[T]
	results  chan TaskResult[T]
	quit     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once

	started bool
	stopped bool
	mu      sync.RWMutex
}

// NewWorkerPoolWithConfig creates a pool, filling in defaults for any
// timeout or buffer left unset
func NewWorkerPoolWithConfig[T any](config PoolConfig) (*Pool[T], error) {
	if config.NumWorkers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if config.TaskChannelSize < 0 {
		return nil, ErrInvalidChannelSize
	}
	if config.ResultChanSize < 0 {
		config.ResultChanSize = config.NumWorkers * 2
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	return &Pool[T]{
		config:  config,
		tasks:   make(chan Executor[T], config.TaskChannelSize),
		results: make(chan TaskResult[T], config.ResultChanSize),
		quit:    make(chan struct{}),
	}, nil
}

// Start launches the workers. Starting twice is a no-op.
func (p *Pool[T]) Start(ctx context.Context, poolID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	if p.stopped {
		log.Error().Str("pool", poolID).Msg("Cannot start a stopped pool")
		return
	}

	p.once.Do(func() {
		p.started = true
		p.startWorkers(ctx, poolID)
		log.Info().Str("pool", poolID).Int("workers", p.config.NumWorkers).Msg("Worker pool started")
	})
}

// Stop drains the workers, waiting up to the shutdown timeout
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		close(p.quit)
		close(p.tasks)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Info().Msg("All workers stopped")
		case <-time.After(p.config.ShutdownTimeout):
			log.Warn().Dur("timeout", p.config.ShutdownTimeout).Msg("Worker shutdown timed out")
		}

		close(p.results)
	})
}

// AddTask queues a task, blocking until there is room or ctx ends
func (p *Pool[T]) AddTask(ctx context.Context, task Executor[T]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel finished task outcomes arrive on
func (p *Pool[T]) Results() <-chan TaskResult[T] {
	return p.results
}

func (p *Pool[T]) startWorkers(ctx context.Context, poolID string) {
	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					p.executeTask(ctx, task, workerID, poolID)
				}
			}
		}(i)
	}
}

// executeTask runs one task under its timeout and reports the outcome
func (p *Pool[T]) executeTask(ctx context.Context, task Executor[T], workerID int, poolID string) {
	taskID := task.ExecutorID()
	startTime := time.Now()

	timeout := p.config.TaskTimeout
	if taskTimeout := task.Timeout(); taskTimeout > 0 {
		timeout = taskTimeout
	}

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Debug().Str("pool", poolID).Int("worker", workerID).Str("taskId", taskID).Msg("Executing task")

	result, err := task.Execute(taskCtx)
	endTime := time.Now()

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || taskCtx.Err() == context.DeadlineExceeded) {
		err = ErrTaskTimeout
	}
	if err != nil {
		task.OnError(err)
	}

	taskResult := TaskResult[T]{
		TaskID:    taskID,
		Result:    result,
		Error:     err,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
	}

	// Never block a worker forever on a full results channel
	select {
	case p.results <- taskResult:
	case <-time.After(1 * time.Second):
		log.Warn().Str("taskId", taskID).Msg("Result channel full, dropping result")
	case <-p.quit:
	}

	log.Debug().
		Str("pool", poolID).
		Int("worker", workerID).
		Str("taskId", taskID).
		Dur("duration", taskResult.Duration).
		Bool("success", err == nil).
		Msg("Task completed")
}
