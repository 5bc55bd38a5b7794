package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
	bolt "go.etcd.io/bbolt"
)

// ErrEntryExists is returned by Put when the (pk, sk) key is already taken.
var ErrEntryExists = errors.New("audit entry already exists")

// Log is the append-only, self-expiring audit table.
type Log interface {
	// Put appends e; it never overwrites an existing entry.
	Put(ctx context.Context, e model.AuditEntry) error
	// Query returns unexpired entries of partition pk whose sort key starts
	// with skPrefix, in sort-key order.
	Query(ctx context.Context, pk, skPrefix string, now time.Time) ([]model.AuditEntry, error)
	// DeleteExpired removes every entry whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// BoltLog stores audit entries in a bbolt bucket with one nested bucket per
// partition key, keyed by sort key.
type BoltLog struct {
	db     *bolt.DB
	bucket []byte
}

var _ Log = (*BoltLog)(nil)

// NewBoltLog returns a Log over the named bucket, which must already exist.
func NewBoltLog(db *bolt.DB, bucket string) *BoltLog {
	return &BoltLog{db: db, bucket: []byte(bucket)}
}

func (l *BoltLog) table(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket(l.bucket)
	if b == nil {
		return nil, fmt.Errorf("events table %q missing", l.bucket)
	}
	return b, nil
}

func (l *BoltLog) Put(ctx context.Context, e model.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		b, err := l.table(tx)
		if err != nil {
			return err
		}
		part, err := b.CreateBucketIfNotExists([]byte(e.PK))
		if err != nil {
			return err
		}
		if part.Get([]byte(e.SK)) != nil {
			return ErrEntryExists
		}
		return part.Put([]byte(e.SK), v)
	})
}

func (l *BoltLog) Query(ctx context.Context, pk, skPrefix string, now time.Time) ([]model.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.AuditEntry, 0)
	err := l.db.View(func(tx *bolt.Tx) error {
		b, err := l.table(tx)
		if err != nil {
			return err
		}
		part := b.Bucket([]byte(pk))
		if part == nil {
			return nil
		}
		prefix := []byte(skPrefix)
		c := part.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var e model.AuditEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode audit entry %s/%s: %w", pk, k, err)
			}
			if e.Expired(now) {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *BoltLog) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed := 0
	err := l.db.Update(func(tx *bolt.Tx) error {
		b, err := l.table(tx)
		if err != nil {
			return err
		}
		var partitions [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if v == nil {
				partitions = append(partitions, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, pk := range partitions {
			part := b.Bucket(pk)
			var expired [][]byte
			live := 0
			if err := part.ForEach(func(k, v []byte) error {
				var e model.AuditEntry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				if e.Expired(now) {
					expired = append(expired, append([]byte(nil), k...))
				} else {
					live++
				}
				return nil
			}); err != nil {
				return err
			}
			for _, k := range expired {
				if err := part.Delete(k); err != nil {
					return err
				}
			}
			removed += len(expired)
			if live == 0 {
				if err := b.DeleteBucket(pk); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// History returns every unexpired entry of a product in recording order.
func History(ctx context.Context, l Log, code string, now time.Time) ([]model.AuditEntry, error) {
	entries, err := l.Query(ctx, model.PartitionKey(code), "", now)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp().Before(entries[j].Timestamp())
	})
	return entries, nil
}
