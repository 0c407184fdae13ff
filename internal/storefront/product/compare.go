package product

import (
	"fmt"
	"slices"
	"strings"

	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/google/uuid"
)

// Comparator orders two products, returning a negative number, zero or a positive number.
type Comparator func(a, b *Product) int

// sameKindComparators holds the ordering used when both products share a kind.
// Health compares by price while Weapon and Armor compare by name. The mismatch
// is long-standing catalog behavior and is kept as is.
var sameKindComparators = map[Kind]Comparator{
	KindWeapon: CompareName,
	KindArmor:  CompareName,
	KindHealth: ComparePrice,
}

// Compare is the default product ordering: case-insensitive by name, unless both
// products have the same kind, in which case that kind's comparator decides.
//
// Mixing health items with other kinds makes the ordering non-transitive, so a
// sort over such a catalog is deterministic but not necessarily alphabetical.
func Compare(a, b *Product) int {
	if a.kind == b.kind {
		if cmp, ok := sameKindComparators[a.kind]; ok {
			return cmp(a, b)
		}
	}
	return CompareName(a, b)
}

// CompareName orders products by name, ignoring case.
func CompareName(a, b *Product) int {
	return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
}

// ComparePrice orders products by price.
func ComparePrice(a, b *Product) int {
	return a.price.Cmp(b.price)
}

// Reverse flips a comparator. Elements comparing equal keep their relative order
// when used with a stable sort.
func Reverse(cmp Comparator) Comparator {
	return func(a, b *Product) int {
		return cmp(b, a)
	}
}

// SortOrder selects one of the listing orders offered to shoppers.
// The zero value keeps the current order.
type SortOrder string

const (
	SortUnsorted  SortOrder = ""
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// ParseSortOrder validates a sort order received from a caller.
func ParseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortUnsorted, SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc:
		return order, nil
	default:
		return SortUnsorted, fmt.Errorf("%w: %q", perrors.ErrInvalidSortOrder, s)
	}
}

// Comparator returns the comparator for the order, or nil for SortUnsorted.
func (o SortOrder) Comparator() Comparator {
	switch o {
	case SortNameAsc:
		return Compare
	case SortNameDesc:
		return Reverse(Compare)
	case SortPriceAsc:
		return ComparePrice
	case SortPriceDesc:
		return Reverse(ComparePrice)
	default:
		return nil
	}
}

// SortStable stably sorts ids by the products they resolve to.
// Every id must resolve to a non-nil product.
func SortStable(ids []uuid.UUID, resolve func(uuid.UUID) *Product, cmp Comparator) {
	if cmp == nil {
		return
	}
	slices.SortStableFunc(ids, func(a, b uuid.UUID) int {
		return cmp(resolve(a), resolve(b))
	})
}
