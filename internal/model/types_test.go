package model

import (
	"testing"
	"time"
)

func TestSortKeyPadsMillis(t *testing.T) {
	if got := SortKey(EventCreated, time.UnixMilli(42)); got != "CREATED#0000000000042" {
		t.Fatalf("unexpected sort key %s", got)
	}
	early := SortKey(EventUpdated, time.UnixMilli(999))
	late := SortKey(EventUpdated, time.UnixMilli(1000))
	if !(early < late) {
		t.Fatalf("byte order must follow time order: %s >= %s", early, late)
	}
}

func TestAuditEntryFromEvent(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)
	p := Product{ID: "p-1", Name: "Shirt", Code: "SHRT-1", Price: 19.9}
	e := NewAuditEntry(NewAuditEvent(EventDeleted, p, "ops@example.com", "req-1"), ts, ts.Add(5*time.Minute))
	if e.PK != "#product_SHRT-1" || e.SK != "DELETED#1700000000123" {
		t.Fatalf("unexpected keys %s %s", e.PK, e.SK)
	}
	if e.Info.ProductID != "p-1" || e.Info.Price != 19.9 || e.Email != "ops@example.com" || e.RequestID != "req-1" {
		t.Fatalf("unexpected payload %+v", e)
	}
	if !e.Timestamp().Equal(ts) {
		t.Fatalf("timestamp %v, want %v", e.Timestamp(), ts)
	}
	if e.TTL != ts.Add(5*time.Minute).Unix() {
		t.Fatalf("unexpected ttl %d", e.TTL)
	}
	exact := ts.Add(5 * time.Minute)
	if early := exact.Sub(e.ExpiresAt()); early < 0 || early >= time.Second {
		t.Fatalf("ttl should round down to the second, off by %v", early)
	}
	if e.Expired(e.ExpiresAt().Add(-time.Millisecond)) || !e.Expired(e.ExpiresAt()) {
		t.Fatalf("expiry boundary wrong")
	}
}

func TestEventTypeValid(t *testing.T) {
	for _, et := range []EventType{EventCreated, EventUpdated, EventDeleted} {
		if !et.Valid() {
			t.Fatalf("%s should be valid", et)
		}
	}
	if EventType("RENAMED").Valid() {
		t.Fatalf("unknown type should be invalid")
	}
}

func TestProductInputRoundTrip(t *testing.T) {
	in := ProductInput{Name: "Cap", Code: "CAP-1", Model: "C", Price: 5, URL: "https://example.com/cap"}
	if got := in.WithID("x").Input(); got != in {
		t.Fatalf("input lost fields: %+v", got)
	}
}
