package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Open opens (creating if needed) the bbolt document store at path and
// ensures the given buckets exist.
func Open(path string, buckets ...string) (*bolt.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open document store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bolt is a Store persisting products as JSON documents in one bbolt bucket,
// keyed by product id.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
	newID  func() string
}

var _ Store = (*Bolt)(nil)

// NewBolt returns a Store over the named bucket, which must already exist.
func NewBolt(db *bolt.DB, bucket string) *Bolt {
	return &Bolt{db: db, bucket: []byte(bucket), newID: uuid.NewString}
}

func (s *Bolt) table(tx *bolt.Tx) (*bolt.Bucket, error) {
	b := tx.Bucket(s.bucket)
	if b == nil {
		return nil, fmt.Errorf("products table %q missing", s.bucket)
	}
	return b, nil
}

func (s *Bolt) FetchAll(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Product, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := s.table(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var p model.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode product %s: %w", k, err)
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Bolt) FetchByID(ctx context.Context, id string) (model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, false, err
	}
	var (
		p     model.Product
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := s.table(tx)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return model.Product{}, false, fmt.Errorf("fetch product %s: %w", id, err)
	}
	return p, found, nil
}

func (s *Bolt) Create(ctx context.Context, in model.ProductInput) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	p := in.WithID(s.newID())
	v, err := json.Marshal(p)
	if err != nil {
		return model.Product{}, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.table(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(p.ID)) != nil {
			return ErrConflict
		}
		return b.Put([]byte(p.ID), v)
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *Bolt) Update(ctx context.Context, id string, p model.Product) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	p.ID = id
	v, err := json.Marshal(p)
	if err != nil {
		return model.Product{}, err
	}
	// The existence check and the put share one write transaction.
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.table(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Put([]byte(id), v)
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

func (s *Bolt) Delete(ctx context.Context, id string) (model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, false, err
	}
	var (
		old   model.Product
		found bool
	)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.table(tx)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &old); err != nil {
			return err
		}
		found = true
		return b.Delete([]byte(id))
	})
	if err != nil {
		return model.Product{}, false, fmt.Errorf("delete product %s: %w", id, err)
	}
	return old, found, nil
}
