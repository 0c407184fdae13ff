package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const selectCatalog = `
SELECT name, description, price::text AS price, quantity, kind, attribute
FROM catalog_products
ORDER BY position`

// PgSource reads the catalog from the catalog_products table.
type PgSource struct {
	db *pgxpool.Pool
}

// NewPgSource creates a PgSource using a PostgreSQL connection pool.
func NewPgSource(dbp *pgxpool.Pool) *PgSource {
	return &PgSource{db: dbp}
}

type catalogRow struct {
	Name        string `db:"name"`
	Description string `db:"description"`
	Price       string `db:"price"`
	Quantity    int32  `db:"quantity"`
	Kind        string `db:"kind"`
	Attribute   int32  `db:"attribute"`
}

// Load returns every catalog row in position order.
func (s *PgSource) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, selectCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[catalogRow])
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	records := make([]Record, len(found))
	for i, row := range found {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %q: %w", row.Price, row.Name, err)
		}
		records[i] = Record{
			Name:        row.Name,
			Description: row.Description,
			Price:       price,
			Quantity:    int(row.Quantity),
			Type:        row.Kind,
			Extra:       int(row.Attribute),
		}
	}
	return records, nil
}
