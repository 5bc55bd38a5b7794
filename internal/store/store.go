// Package store implements the product catalog repository.
package store

import (
	"context"
	"errors"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
)

var (
	// ErrNotFound is returned by Update when no product has the given id.
	ErrNotFound = errors.New("product not found")
	// ErrConflict is returned by Create when the generated id is already taken.
	ErrConflict = errors.New("product id already exists")
)

// Store is the catalog repository. Conditional writes are evaluated
// atomically by the implementation, never as a read followed by a write.
type Store interface {
	// FetchAll returns every product in no particular order.
	FetchAll(ctx context.Context) ([]model.Product, error)
	// FetchByID returns the product and true, or false if it does not exist.
	FetchByID(ctx context.Context, id string) (model.Product, bool, error)
	// Create stores in under a freshly generated id.
	Create(ctx context.Context, in model.ProductInput) (model.Product, error)
	// Update overwrites the fields of an existing product, or fails with ErrNotFound.
	Update(ctx context.Context, id string, p model.Product) (model.Product, error)
	// Delete removes the product and returns what was removed, or false if absent.
	Delete(ctx context.Context, id string) (model.Product, bool, error)
}
