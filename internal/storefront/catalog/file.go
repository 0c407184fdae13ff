package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/shopspring/decimal"
)

// FileSource reads the catalog from a JSON array file.
//
// The kind attribute may be given as "extra" or under its own name
// ("damage", "defense", "healingPower").
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

type fileRecord struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Type         string          `json:"type"`
	Extra        *int            `json:"extra"`
	Damage       *int            `json:"damage"`
	Defense      *int            `json:"defense"`
	HealingPower *int            `json:"healingPower"`
}

// Load decodes the file into records.
func (s *FileSource) Load(_ context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	var raw []fileRecord
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", s.Path, err)
	}

	records := make([]Record, len(raw))
	for i, r := range raw {
		records[i] = r.toRecord()
	}
	return records, nil
}

func (r fileRecord) toRecord() Record {
	record := Record{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Type:        r.Type,
	}
	kind, err := product.ParseKind(r.Type)
	if err != nil {
		// left as is, validation reports it
		return record
	}
	record.Type = kind.String()

	extra := r.Extra
	switch kind {
	case product.KindWeapon:
		extra = firstSet(r.Damage, extra)
	case product.KindArmor:
		extra = firstSet(r.Defense, extra)
	case product.KindHealth:
		extra = firstSet(r.HealingPower, extra)
	}
	if extra != nil {
		record.Extra = *extra
	}
	return record
}

func firstSet(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
