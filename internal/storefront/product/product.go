// Package product defines the sellable catalog entry and its variants.
//
// A Product is one of a closed set of kinds (Weapon, Armor, Health). Each kind
// carries a single integer attribute: damage, defense or healing power.
package product

import (
	"fmt"
	"strings"

	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the variant tag of a product.
type Kind int

const (
	KindWeapon Kind = iota + 1
	KindArmor
	KindHealth
)

// String returns the variant tag as reported by Product.Type.
func (k Kind) String() string {
	switch k {
	case KindWeapon:
		return "Weapon"
	case KindArmor:
		return "Armor"
	case KindHealth:
		return "Health"
	default:
		return "Unknown"
	}
}

// ParseKind maps a variant tag to a Kind, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weapon":
		return KindWeapon, nil
	case "armor":
		return KindArmor, nil
	case "health":
		return KindHealth, nil
	default:
		return 0, fmt.Errorf("%w: unknown product type %q", perrors.ErrInvalidProduct, s)
	}
}

// Product is a sellable catalog entry. Instances are owned by the inventory;
// the cart refers to them by ID.
type Product struct {
	id          uuid.UUID
	name        string
	description string
	price       decimal.Decimal
	quantity    int
	kind        Kind
	attribute   int
}

// New validates the arguments and builds a product of the given kind.
// Returns ErrInvalidProduct for an empty name, a negative price or a negative quantity.
func New(kind Kind, name, description string, price decimal.Decimal, quantity, attribute int) (*Product, error) {
	switch kind {
	case KindWeapon, KindArmor, KindHealth:
	default:
		return nil, fmt.Errorf("%w: unknown product kind %d", perrors.ErrInvalidProduct, kind)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", perrors.ErrInvalidProduct)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price of %q must not be negative: %s", perrors.ErrInvalidProduct, name, price)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity of %q must not be negative: %d", perrors.ErrInvalidProduct, name, quantity)
	}
	return &Product{
		id:          uuid.New(),
		name:        name,
		description: description,
		price:       price,
		quantity:    quantity,
		kind:        kind,
		attribute:   attribute,
	}, nil
}

// NewWeapon creates a weapon dealing the given damage.
func NewWeapon(name, description string, price decimal.Decimal, quantity, damage int) (*Product, error) {
	return New(KindWeapon, name, description, price, quantity, damage)
}

// NewArmor creates an armor piece with the given defense.
func NewArmor(name, description string, price decimal.Decimal, quantity, defense int) (*Product, error) {
	return New(KindArmor, name, description, price, quantity, defense)
}

// NewHealth creates a health item with the given healing power.
func NewHealth(name, description string, price decimal.Decimal, quantity, healingPower int) (*Product, error) {
	return New(KindHealth, name, description, price, quantity, healingPower)
}

func (p *Product) ID() uuid.UUID          { return p.id }
func (p *Product) Name() string           { return p.name }
func (p *Product) Description() string    { return p.description }
func (p *Product) Price() decimal.Decimal { return p.price }
func (p *Product) Quantity() int          { return p.quantity }
func (p *Product) Kind() Kind             { return p.kind }

// Type returns the variant tag: "Weapon", "Armor" or "Health".
func (p *Product) Type() string { return p.kind.String() }

// Attribute returns the kind-specific value (damage, defense or healing power).
func (p *Product) Attribute() int { return p.attribute }

// SetQuantity replaces the stock quantity. Negative values are rejected.
func (p *Product) SetQuantity(quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity of %q must not be negative: %d", perrors.ErrInvalidProduct, p.name, quantity)
	}
	p.quantity = quantity
	return nil
}

// Damage returns the damage of a weapon.
func (p *Product) Damage() (int, bool) { return p.attributeOf(KindWeapon) }

// Defense returns the defense of an armor piece.
func (p *Product) Defense() (int, bool) { return p.attributeOf(KindArmor) }

// HealingPower returns the healing power of a health item. It has no setter.
func (p *Product) HealingPower() (int, bool) { return p.attributeOf(KindHealth) }

// SetDamage changes the damage of a weapon.
func (p *Product) SetDamage(damage int) error { return p.setAttribute(KindWeapon, damage) }

// SetDefense changes the defense of an armor piece.
func (p *Product) SetDefense(defense int) error { return p.setAttribute(KindArmor, defense) }

func (p *Product) attributeOf(kind Kind) (int, bool) {
	if p.kind != kind {
		return 0, false
	}
	return p.attribute, true
}

func (p *Product) setAttribute(kind Kind, value int) error {
	if p.kind != kind {
		return fmt.Errorf("%w: %s %q has no %s attribute", perrors.ErrInvalidProduct, p.Type(), p.name, strings.ToLower(kind.String()))
	}
	p.attribute = value
	return nil
}

// Equal reports whether both products have the same name, description, price
// and quantity. The kind and its attribute are not compared.
func (p *Product) Equal(other *Product) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	return p.name == other.name &&
		p.description == other.description &&
		p.price.Equal(other.price) &&
		p.quantity == other.quantity
}

// DisplayDescription returns the description followed by the kind attribute.
func (p *Product) DisplayDescription() string {
	switch p.kind {
	case KindWeapon:
		return fmt.Sprintf("%s - Attack Power: %d", p.description, p.attribute)
	case KindArmor:
		return fmt.Sprintf("%s - Defense Power: %d", p.description, p.attribute)
	case KindHealth:
		return fmt.Sprintf("%s - Healing Power: %d", p.description, p.attribute)
	default:
		return p.description
	}
}

func (p *Product) String() string {
	price := p.price.StringFixed(2)
	switch p.kind {
	case KindArmor:
		return fmt.Sprintf("%s - $%s - %d in stock - Defense: %d", p.name, price, p.quantity, p.attribute)
	case KindHealth:
		return fmt.Sprintf("%s - %s - $%s - %d - %d healing", p.name, p.description, price, p.quantity, p.attribute)
	default:
		return fmt.Sprintf("%s - %s - $%s - %d in stock - Damage: %d", p.name, p.description, price, p.quantity, p.attribute)
	}
}
