// Package dispatch hands audit events to the recorder without making the
// caller wait for the recorder to finish.
//
// Delivery is at-least-once once Dispatch has accepted an event: channels may
// invoke the consumer again after a failure. An event is never replayed if the
// process dies before Dispatch is called.
package dispatch

import (
	"context"
	"errors"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
)

var (
	// ErrIntakeClosed is returned by Dispatch after shutdown has begun.
	ErrIntakeClosed = errors.New("dispatch intake closed")
	// ErrUndeliverable marks a consumer error that no retry can fix. Channels
	// settle such events after the first attempt.
	ErrUndeliverable = errors.New("event undeliverable")
)

// Dispatcher accepts an event for asynchronous delivery. It returns as soon as
// the channel has taken the payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.AuditEvent) error
}

// Consumer processes delivered events; the audit recorder implements it.
type Consumer interface {
	Record(ctx context.Context, ev model.AuditEvent) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, ev model.AuditEvent) error

func (f ConsumerFunc) Record(ctx context.Context, ev model.AuditEvent) error { return f(ctx, ev) }
