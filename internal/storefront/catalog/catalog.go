// Package catalog seeds the inventory from an external data source.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Record is one catalog entry as read from a source.
type Record struct {
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price"       validate:"min=0"`
	Quantity    int             `json:"quantity"    validate:"min=0"`
	Type        string          `json:"type"        validate:"required,oneof=Weapon Armor Health"`
	Extra       int             `json:"extra"`
}

// Source provides catalog records in display order.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// Loader validates records from a Source and turns them into products.
type Loader struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	validate := validator.New()
	// Prices are checked as numbers, so tags like min apply to decimals.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Loader{
		validate: validate,
		logger:   logger.With("component", "catalog"),
	}
}

// Load reads every record from src and builds the products in source order.
// Any failure, including a duplicate name, is returned wrapped in ErrCatalogLoad
// and no products are returned.
func (l *Loader) Load(ctx context.Context, src Source) ([]*product.Product, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", perrors.ErrCatalogLoad, err)
	}

	products := make([]*product.Product, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, record := range records {
		p, err := l.toProduct(record)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", perrors.ErrCatalogLoad, i, err)
		}
		key := strings.ToLower(p.Name())
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: record %d: %w: %q already defined by record %d",
				perrors.ErrCatalogLoad, i, perrors.ErrDuplicateProduct, p.Name(), first)
		}
		seen[key] = i
		products = append(products, p)
	}
	l.logger.InfoContext(ctx, "Catalog loaded", "products", len(products))
	return products, nil
}

func (l *Loader) toProduct(record Record) (*product.Product, error) {
	if err := l.validate.Struct(record); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fieldErr := validationErrors[0]
			return nil, fmt.Errorf("%w: %s failed on rule: %s", perrors.ErrInvalidProduct, fieldErr.Field(), fieldErr.Tag())
		}
		return nil, fmt.Errorf("%w: %w", perrors.ErrInvalidProduct, err)
	}
	kind, err := product.ParseKind(record.Type)
	if err != nil {
		return nil, err
	}
	return product.New(kind, record.Name, record.Description, record.Price, record.Quantity, record.Extra)
}
