package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/config"
	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
)

// Manager is the in-process dispatch channel: it owns the queue and an
// autoscaling set of workers that invoke the consumer.
type Manager struct {
	cfg    config.Config
	q      *Queue
	c      Consumer
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

var _ Dispatcher = (*Manager)(nil)

// NewManager constructs a Manager with the given config, queue, and consumer.
func NewManager(cfg config.Config, q *Queue, c Consumer) *Manager {
	if cfg.DispatchMaxAttempts <= 0 {
		cfg.DispatchMaxAttempts = 1
	}
	if cfg.ScaleInterval <= 0 {
		cfg.ScaleInterval = 500 * time.Millisecond
	}
	return &Manager{cfg: cfg, q: q, c: c}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(m.cfg.InitialWorkerCount)
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

// Dispatch accepts ev for delivery and returns without waiting for the consumer.
func (m *Manager) Dispatch(_ context.Context, ev model.AuditEvent) error {
	if !m.q.Enqueue(ev) {
		return ErrIntakeClosed
	}
	return nil
}

// scaler adjusts worker count based on backlog and configuration.
func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

// addWorkers spawns n workers.
func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.Info("dispatch_workers_scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Info("dispatch_workers_scaled", "worker_count", len(m.workerCancels))
}

// worker hands queued events to the consumer. ctx only ends the loop; a
// delivery taken off the queue runs under the manager's context so scaling
// down never cancels it.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-m.q.outC():
			m.deliver(m.ctx, d)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, d delivery) {
	err := m.c.Record(ctx, d.ev)
	if err == nil {
		m.q.markProcessed()
		return
	}
	if d.attempt >= m.cfg.DispatchMaxAttempts || errors.Is(err, ErrUndeliverable) {
		m.q.markProcessed()
		obs.EventsDropped.Inc()
		obs.Logger.Error("event_delivery_abandoned",
			"event_type", d.ev.EventType,
			"product_code", d.ev.ProductCode,
			"request_id", d.ev.RequestID,
			"attempts", d.attempt,
			"error", err,
		)
		return
	}
	obs.EventRetries.Inc()
	obs.Logger.Warn("event_delivery_retry",
		"event_type", d.ev.EventType,
		"product_code", d.ev.ProductCode,
		"attempt", d.attempt,
		"error", err,
	)
	backoff := time.Duration(d.attempt) * m.cfg.DispatchRetryBackoff
	time.AfterFunc(backoff, func() { m.q.requeue(d) })
}

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new dispatches are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future dispatches.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// DrainUntil blocks until every accepted event is finished or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
