package store

import (
	"context"
	"sync"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Store backed by a map.
type Memory struct {
	mu    sync.RWMutex
	m     map[string]model.Product
	newID func() string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{m: make(map[string]model.Product), newID: uuid.NewString}
}

func (s *Memory) FetchAll(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	return out, nil
}

func (s *Memory) FetchByID(ctx context.Context, id string) (model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	return p, ok, nil
}

func (s *Memory) Create(ctx context.Context, in model.ProductInput) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	p := in.WithID(s.newID())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[p.ID]; exists {
		return model.Product{}, ErrConflict
	}
	s.m[p.ID] = p
	return p, nil
}

func (s *Memory) Update(ctx context.Context, id string, p model.Product) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	p.ID = id
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[id]; !exists {
		return model.Product{}, ErrNotFound
	}
	s.m[id] = p
	return p, nil
}

func (s *Memory) Delete(ctx context.Context, id string) (model.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	return p, ok, nil
}
