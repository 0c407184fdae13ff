// Package cart holds a shopping session's selected items.
package cart

import (
	"slices"

	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Resolver looks up the canonical product record for an ID.
type Resolver interface {
	Get(id uuid.UUID) (*product.Product, bool)
}

// Cart stores references to inventory products, one entry per purchased unit.
// It is not safe for concurrent use.
type Cart struct {
	resolver Resolver
	items    []uuid.UUID
}

// New creates an empty cart resolving its entries through r.
func New(r Resolver) *Cart {
	return &Cart{resolver: r}
}

// Add appends one unit of p.
func (c *Cart) Add(p *product.Product) {
	c.items = append(c.items, p.ID())
}

// RemoveOne removes the first entry equal to p and reports whether one was found.
func (c *Cart) RemoveOne(p *product.Product) bool {
	for i, id := range c.items {
		if item, ok := c.resolver.Get(id); ok && item.Equal(p) {
			c.items = slices.Delete(c.items, i, i+1)
			return true
		}
	}
	return false
}

// Count returns how many entries are equal to p.
func (c *Cart) Count(p *product.Product) int {
	count := 0
	for _, item := range c.Contents() {
		if item.Equal(p) {
			count++
		}
	}
	return count
}

// Contents returns the live product records in cart order, one per entry.
// Entries whose product has left the inventory are skipped.
func (c *Cart) Contents() []*product.Product {
	list := make([]*product.Product, 0, len(c.items))
	for _, id := range c.items {
		if p, ok := c.resolver.Get(id); ok {
			list = append(list, p)
		}
	}
	return list
}

// Total returns the sum of the prices of all entries.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c.Contents() {
		total = total.Add(p.Price())
	}
	return total
}

// Len returns the number of entries.
func (c *Cart) Len() int {
	return len(c.items)
}

// Empty removes every entry. Calling it on an empty cart is a no-op.
func (c *Cart) Empty() {
	c.items = c.items[:0]
}

// Sort reorders the cart in place. SortUnsorted leaves it untouched.
func (c *Cart) Sort(order product.SortOrder) {
	c.prune()
	product.SortStable(c.items, c.resolve, order.Comparator())
}

func (c *Cart) SortByNameAscending()   { c.Sort(product.SortNameAsc) }
func (c *Cart) SortByNameDescending()  { c.Sort(product.SortNameDesc) }
func (c *Cart) SortByPriceAscending()  { c.Sort(product.SortPriceAsc) }
func (c *Cart) SortByPriceDescending() { c.Sort(product.SortPriceDesc) }

// prune drops entries that no longer resolve, so sorting only sees live products.
func (c *Cart) prune() {
	c.items = slices.DeleteFunc(c.items, func(id uuid.UUID) bool {
		_, ok := c.resolver.Get(id)
		return !ok
	})
}

func (c *Cart) resolve(id uuid.UUID) *product.Product {
	p, _ := c.resolver.Get(id)
	return p
}
