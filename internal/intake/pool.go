package intake

import (
	"context"
	"errors"
	"sync"

	"github.com/luckystars0612/SecGram/internal/observability"
	"github.com/luckystars0612/SecGram/internal/taskqueue"
)

// Pool runs a fixed number of long-lived workers over the task queue.
// Workers are started once and only exit when the queue is closed and
// drained (or the context is canceled); a failing job never stops a worker.
type Pool struct {
	workers   int
	queue     *taskqueue.Queue
	processor *Processor
	logger    observability.Logger
	metrics   observability.Metrics
	wg        sync.WaitGroup
}

// NewPool creates a Pool of the given size
func NewPool(workers int, queue *taskqueue.Queue, processor *Processor,
	logger observability.Logger, metrics observability.Metrics) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:   workers,
		queue:     queue,
		processor: processor,
		logger:    logger.WithFields(map[string]interface{}{"component": "pool"}),
		metrics:   metrics,
	}
}

// Start launches the workers. It returns immediately.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until every worker has exited
func (p *Pool) Wait() {
	p.wg.Wait()
	p.logger.Info("worker pool drained")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.WithFields(map[string]interface{}{"worker": id})

	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, taskqueue.ErrQueueClosed) {
				logger.Info("queue closed, worker exiting")
			} else {
				logger.Info("worker context canceled", "error", err)
			}
			return
		}

		p.metrics.SetGauge("queue.depth", float64(p.queue.Len()), nil)
		p.processor.Process(ctx, job)
	}
}
