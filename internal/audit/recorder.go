// Package audit records catalog change events into a time-ordered,
// self-expiring audit log.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/dispatch"
	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
)

// DefaultRetention is how long an audit entry stays retrievable.
const DefaultRetention = 5 * time.Minute

// putAttempts bounds retries when a sort key is already taken by another writer.
const putAttempts = 3

// Recorder appends one audit entry per received event. Delivery upstream is
// at-least-once, so duplicates land as extra entries. An empty product code
// is recorded under the bare "#product_" partition.
type Recorder struct {
	log       Log
	retention time.Duration
	clock     *Clock
}

// NewRecorder returns a Recorder writing to log with the given retention.
func NewRecorder(log Log, retention time.Duration) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Recorder{log: log, retention: retention, clock: NewClock(nil)}
}

// WithClock replaces the timestamp source.
func (r *Recorder) WithClock(c *Clock) *Recorder {
	r.clock = c
	return r
}

// Record writes ev into the audit log and returns once the entry is stored.
func (r *Recorder) Record(ctx context.Context, ev model.AuditEvent) error {
	if !ev.EventType.Valid() {
		return fmt.Errorf("record audit event: unknown event type %q: %w", ev.EventType, dispatch.ErrUndeliverable)
	}
	var err error
	for i := 0; i < putAttempts; i++ {
		ts := r.clock.Next()
		e := model.NewAuditEntry(ev, ts, ts.Add(r.retention))
		err = r.log.Put(ctx, e)
		if err == nil {
			obs.EventsRecorded.WithLabelValues(string(ev.EventType)).Inc()
			obs.Logger.Info("audit_entry_recorded",
				"pk", e.PK,
				"sk", e.SK,
				"event_type", e.EventType,
				"request_id", e.RequestID,
				"ttl", e.TTL,
			)
			return nil
		}
		if !errors.Is(err, ErrEntryExists) {
			break
		}
	}
	return fmt.Errorf("record audit event %s for %s: %w", ev.EventType, ev.ProductCode, err)
}
