package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

// persistTimeout bounds each deferred task so a stuck database write cannot
// wedge the worker.
const persistTimeout = 10 * time.Second

// Task is one deferred persistence action. Name labels metrics and logs.
type Task struct {
	Name string
	Do   func(ctx context.Context) error
}

// Persister runs persistence tasks off the request path. Assessments are
// returned to callers immediately; rows land in the store shortly after.
// Tasks are idempotent (upsert-or-ignore), so a drop or redelivery never
// corrupts data, only delays or skips one write.
type Persister struct {
	tasks   chan Task
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPersister creates a Persister with a bounded queue.
func NewPersister(queueSize int, logger *slog.Logger, metrics *observability.Metrics) *Persister {
	return &Persister{
		tasks:   make(chan Task, queueSize),
		logger:  logger,
		metrics: metrics,
	}
}

// Enqueue submits a task without blocking. When the queue is full the task
// is dropped and counted; the caller's response is never delayed by
// persistence backpressure.
func (p *Persister) Enqueue(task Task) {
	select {
	case p.tasks <- task:
		p.metrics.QueueDepth.Set(float64(len(p.tasks)))
	default:
		p.logger.Warn("persistence queue full, dropping task", "task", task.Name)
		p.metrics.PersistTasks.WithLabelValues(task.Name, "dropped").Inc()
	}
}

// Run processes tasks until ctx is canceled, then drains whatever is already
// queued before returning. Each task gets its own timeout detached from any
// request context, since the originating request has already completed.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case task := <-p.tasks:
			p.run(task)
		default:
			return
		}
	}
}

func (p *Persister) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := task.Do(ctx); err != nil {
		p.logger.Error("persistence task failed", "task", task.Name, "error", err)
		p.metrics.PersistTasks.WithLabelValues(task.Name, "error").Inc()
	} else {
		p.metrics.PersistTasks.WithLabelValues(task.Name, "success").Inc()
	}
	p.metrics.QueueDepth.Set(float64(len(p.tasks)))
}
