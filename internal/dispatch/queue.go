package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
)

// delivery is one attempt to hand an event to the consumer.
type delivery struct {
	ev      model.AuditEvent
	attempt int
}

// Queue is an unbounded event backlog with a background broker feeding a
// buffered output channel.
type Queue struct {
	mu           sync.Mutex
	backlog      []delivery
	notify       chan struct{}
	out          chan delivery
	shuttingDown atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
}

// NewQueue creates a Queue with a buffered output channel.
func NewQueue(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan delivery, outBuffer),
	}
}

// Start runs the broker loop.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

// broker moves backlog items to the output channel.
func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		sz := q.BacklogSize()
		obs.DispatchBacklog.Set(float64(sz))
		if highWatermark > 0 && sz > highWatermark {
			obs.Logger.Warn("dispatch_backlog_high", "backlog_size", sz, "high_watermark", highWatermark)
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains backlog into the output buffer.
func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.out <- item
	}
}

// Enqueue accepts a new event. It returns false once intake is closed.
func (q *Queue) Enqueue(ev model.AuditEvent) bool {
	if q.shuttingDown.Load() {
		return false
	}
	q.enqueued.Add(1)
	q.push(delivery{ev: ev, attempt: 1})
	return true
}

// requeue puts a failed delivery back. It bypasses the intake check so
// accepted events keep retrying during shutdown drain.
func (q *Queue) requeue(d delivery) {
	d.attempt++
	q.push(d)
}

func (q *Queue) push(d delivery) {
	q.mu.Lock()
	q.backlog = append(q.backlog, d)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) outC() <-chan delivery { return q.out }

// BacklogSize returns the number of events not yet moved to the output buffer.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus buffered output items.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// markProcessed counts an event as finished, delivered or abandoned.
func (q *Queue) markProcessed() { q.processed.Add(1) }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
