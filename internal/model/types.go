// Package model defines domain types used by the service.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Product represents a catalog entry as stored in the products table.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Code  string  `json:"code"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
	URL   string  `json:"url,omitempty"`
}

// ProductInput is a product without its generated identifier.
type ProductInput struct {
	Name  string  `json:"name"`
	Code  string  `json:"code"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
	URL   string  `json:"url,omitempty"`
}

// WithID builds the stored product for the given id.
func (in ProductInput) WithID(id string) Product {
	return Product{ID: id, Name: in.Name, Code: in.Code, Model: in.Model, Price: in.Price, URL: in.URL}
}

// Input strips the identifier from p.
func (p Product) Input() ProductInput {
	return ProductInput{Name: p.Name, Code: p.Code, Model: p.Model, Price: p.Price, URL: p.URL}
}

// EventType names the catalog mutation that produced an audit event.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// AuditEvent is the notification sent after a successful catalog mutation.
type AuditEvent struct {
	EventType   EventType `json:"eventType"`
	ProductID   string    `json:"productId"`
	ProductCode string    `json:"productCode"`
	Price       float64   `json:"price"`
	Actor       string    `json:"email"`
	RequestID   string    `json:"requestId"`
}

// NewAuditEvent snapshots p for the given mutation.
func NewAuditEvent(t EventType, p Product, actor, requestID string) AuditEvent {
	return AuditEvent{
		EventType:   t,
		ProductID:   p.ID,
		ProductCode: p.Code,
		Price:       p.Price,
		Actor:       actor,
		RequestID:   requestID,
	}
}

// AuditInfo is the nested product snapshot of an audit entry.
type AuditInfo struct {
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
}

// AuditEntry is the persisted form of an AuditEvent.
type AuditEntry struct {
	PK        string    `json:"pk"`
	SK        string    `json:"sk"`
	Email     string    `json:"email"`
	EventType EventType `json:"eventType"`
	RequestID string    `json:"requestId"`
	Info      AuditInfo `json:"info"`
	TTL       int64     `json:"ttl"`
}

const partitionPrefix = "#product_"

// PartitionKey returns the audit partition for a product code.
func PartitionKey(code string) string { return partitionPrefix + code }

// SortKey returns the audit ordering key. Millisecond timestamps are padded
// to 13 digits so byte order matches numeric order.
func SortKey(t EventType, ts time.Time) string {
	return string(t) + "#" + padMillis(ts.UnixMilli())
}

func padMillis(ms int64) string {
	s := strconv.FormatInt(ms, 10)
	if len(s) < 13 {
		s = strings.Repeat("0", 13-len(s)) + s
	}
	return s
}

// NewAuditEntry builds the entry recorded at ts that expires at expiresAt.
// TTL keeps whole seconds, like DynamoDB TTL, so expiry may land up to 999ms
// before expiresAt.
func NewAuditEntry(ev AuditEvent, ts, expiresAt time.Time) AuditEntry {
	return AuditEntry{
		PK:        PartitionKey(ev.ProductCode),
		SK:        SortKey(ev.EventType, ts),
		Email:     ev.Actor,
		EventType: ev.EventType,
		RequestID: ev.RequestID,
		Info:      AuditInfo{ProductID: ev.ProductID, Price: ev.Price},
		TTL:       expiresAt.Unix(),
	}
}

// Timestamp parses the recording time out of the sort key.
func (e AuditEntry) Timestamp() time.Time {
	i := strings.LastIndexByte(e.SK, '#')
	if i < 0 {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(e.SK[i+1:], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// ExpiresAt returns the absolute expiry of the entry.
func (e AuditEntry) ExpiresAt() time.Time { return time.Unix(e.TTL, 0) }

// Expired reports whether the entry is past its expiry at now.
func (e AuditEntry) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt()) }
