// Package inventory provides the authoritative, ordered product catalog.
package inventory

import (
	"fmt"
	"slices"
	"strings"

	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/google/uuid"
)

// Inventory owns the canonical product records, keyed by product ID, and keeps
// them in display order. It is not safe for concurrent use.
type Inventory struct {
	products map[uuid.UUID]*product.Product
	order    []uuid.UUID
}

// New creates an inventory holding the given products in the given order.
// Returns ErrDuplicateProduct if two products share a name, ignoring case.
func New(products ...*product.Product) (*Inventory, error) {
	inv := &Inventory{
		products: make(map[uuid.UUID]*product.Product, len(products)),
		order:    make([]uuid.UUID, 0, len(products)),
	}
	for _, p := range products {
		if err := inv.Add(p); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Add appends a product to the end of the inventory.
// Returns ErrInvalidProduct for nil and ErrDuplicateProduct if the name is taken.
func (inv *Inventory) Add(p *product.Product) error {
	if p == nil {
		return fmt.Errorf("%w: nil product", perrors.ErrInvalidProduct)
	}
	if existing, found := inv.FindByName(p.Name()); found {
		return fmt.Errorf("%w: %q conflicts with %q", perrors.ErrDuplicateProduct, p.Name(), existing.Name())
	}
	inv.products[p.ID()] = p
	inv.order = append(inv.order, p.ID())
	return nil
}

// Remove deletes the given product record. It reports whether the product was present.
func (inv *Inventory) Remove(p *product.Product) bool {
	if p == nil {
		return false
	}
	if _, ok := inv.products[p.ID()]; !ok {
		return false
	}
	delete(inv.products, p.ID())
	inv.order = slices.DeleteFunc(inv.order, func(id uuid.UUID) bool { return id == p.ID() })
	return true
}

// Get returns the product with the given ID.
func (inv *Inventory) Get(id uuid.UUID) (*product.Product, bool) {
	p, ok := inv.products[id]
	return p, ok
}

// FindByName returns the first product, in current order, whose name matches ignoring case.
// The second result is false when nothing matches.
func (inv *Inventory) FindByName(name string) (*product.Product, bool) {
	for _, id := range inv.order {
		if p := inv.products[id]; strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// Products returns the live product records in current order.
// Changing a product through the result changes the inventory.
func (inv *Inventory) Products() []*product.Product {
	list := make([]*product.Product, len(inv.order))
	for i, id := range inv.order {
		list[i] = inv.products[id]
	}
	return list
}

// Len returns the number of distinct products.
func (inv *Inventory) Len() int {
	return len(inv.order)
}

// Sort reorders the inventory in place. SortUnsorted leaves it untouched.
func (inv *Inventory) Sort(order product.SortOrder) {
	product.SortStable(inv.order, inv.resolve, order.Comparator())
}

func (inv *Inventory) SortByNameAscending()   { inv.Sort(product.SortNameAsc) }
func (inv *Inventory) SortByNameDescending()  { inv.Sort(product.SortNameDesc) }
func (inv *Inventory) SortByPriceAscending()  { inv.Sort(product.SortPriceAsc) }
func (inv *Inventory) SortByPriceDescending() { inv.Sort(product.SortPriceDesc) }

func (inv *Inventory) resolve(id uuid.UUID) *product.Product {
	return inv.products[id]
}
