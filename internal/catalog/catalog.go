package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/GotWill/checkout-colmeia/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Filter narrows List. Zero values match everything.
type Filter struct {
	Query    string
	Category string
}

// Matches applies the storefront search: case-insensitive substring on name
// or description, exact category.
func (f Filter) Matches(p domain.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

type Catalog interface {
	List(ctx context.Context, f Filter) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}
