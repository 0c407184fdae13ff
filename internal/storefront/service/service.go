// Package service implements the storefront business logic: browsing the
// inventory and moving stock between the inventory and the shopping cart.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/storefront/cart"
	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/abgdnv/storefront/internal/storefront/inventory"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("storefront")

// StoreService defines the operations the shopper-facing layer calls.
type StoreService interface {
	// ListInventory sorts the inventory by order, unless it is SortUnsorted, and returns it.
	ListInventory(ctx context.Context, order product.SortOrder) []ProductDto

	// FindByName looks a product up ignoring case.
	// Returns ErrProductNotFound if no product has that name.
	FindByName(ctx context.Context, name string) (*ProductDto, error)

	// QuotePurchase validates a purchase without changing anything.
	// Returns ErrProductNotFound or ErrOutOfStock.
	QuotePurchase(ctx context.Context, name string) (*Quote, error)

	// Purchase moves one unit of the named product from the inventory into the cart
	// once confirm accepts the quote.
	// Returns ErrProductNotFound or ErrOutOfStock.
	Purchase(ctx context.Context, name string, confirm Confirmation) (*Receipt, error)

	// QuoteCancellation reports how many units of the product the cart holds and their refund.
	// Returns ErrProductNotFound or ErrNotInCart.
	QuoteCancellation(ctx context.Context, name string) (*Quote, error)

	// CancelPurchase returns the cart's units of the named product to the inventory
	// once confirm accepts the quote.
	// Returns ErrProductNotFound or ErrNotInCart.
	CancelPurchase(ctx context.Context, name string, confirm Confirmation) (*Receipt, error)

	// ListCart sorts the cart by order, unless it is SortUnsorted, and returns it.
	ListCart(ctx context.Context, order product.SortOrder) CartDto

	// EmptyCart removes every cart entry. Stock is not returned to the inventory.
	EmptyCart(ctx context.Context)
}

// Confirmation decides whether a quoted action goes ahead. A nil Confirmation accepts.
type Confirmation func(Quote) bool

// Accept confirms every quote.
func Accept(Quote) bool { return true }

// Decline rejects every quote.
func Decline(Quote) bool { return false }

// ProductDto represents a product as shown to shoppers.
type ProductDto struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Type         string          `json:"type"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Damage       *int            `json:"damage,omitempty"`
	Defense      *int            `json:"defense,omitempty"`
	HealingPower *int            `json:"healingPower,omitempty"`
}

// Quote describes a pending purchase or cancellation.
// For a purchase Units is 1; for a cancellation it is the number of units in the cart.
type Quote struct {
	Product ProductDto      `json:"product"`
	Units   int             `json:"units"`
	Amount  decimal.Decimal `json:"amount"`
}

// Receipt is the outcome of a purchase or cancellation. Declined is set when the
// confirmation rejected the quote and nothing changed.
type Receipt struct {
	Quote
	Declined bool `json:"declined"`
}

// CartDto represents the cart contents.
type CartDto struct {
	Items []ProductDto    `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Service implements StoreService over one inventory and one cart.
// Every operation holds a single lock, so stock updates and cart changes happen together.
type Service struct {
	mu            sync.Mutex
	inventory     *inventory.Inventory
	cart          *cart.Cart
	logger        *slog.Logger
	purchases     metric.Int64Counter
	cancellations metric.Int64Counter
}

// NewService creates a new instance of StoreService working on the given inventory and cart.
func NewService(inv *inventory.Inventory, c *cart.Cart, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	purchases, err := meter.Int64Counter("storefront_purchases", metric.WithDescription("Confirmed or declined purchases"))
	if err != nil {
		panic(fmt.Sprintf("failed to create storefront_purchases counter: %v", err))
	}
	cancellations, err := meter.Int64Counter("storefront_cancellations", metric.WithDescription("Confirmed or declined purchase cancellations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create storefront_cancellations counter: %v", err))
	}
	return &Service{
		inventory:     inv,
		cart:          c,
		logger:        logger.With("component", "service"),
		purchases:     purchases,
		cancellations: cancellations,
	}
}

var (
	outcomeConfirmed = metric.WithAttributes(attribute.String("outcome", "confirmed"))
	outcomeDeclined  = metric.WithAttributes(attribute.String("outcome", "declined"))
)

// ListInventory returns the inventory in the requested order.
func (s *Service) ListInventory(_ context.Context, order product.SortOrder) []ProductDto {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inventory.Sort(order)
	return toDtos(s.inventory.Products())
}

// FindByName returns the product with the given name, ignoring case.
func (s *Service) FindByName(_ context.Context, name string) (*ProductDto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return toDto(p), nil
}

// QuotePurchase validates that the product exists and is in stock.
func (s *Service) QuotePurchase(_ context.Context, name string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, quote, err := s.quotePurchase(name)
	return quote, err
}

// Purchase decrements the product's stock by one and adds it to the cart.
// Nothing changes when validation fails or confirm declines.
func (s *Service) Purchase(ctx context.Context, name string, confirm Confirmation) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "Service.Purchase", trace.WithAttributes(attribute.String("product.name", name)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, quote, err := s.quotePurchase(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if confirm != nil && !confirm(*quote) {
		span.SetAttributes(attribute.Bool("declined", true))
		s.logger.InfoContext(ctx, "Purchase declined", "product", p.Name())
		s.purchases.Add(ctx, 1, outcomeDeclined)
		return &Receipt{Quote: *quote, Declined: true}, nil
	}

	if err := p.SetQuantity(p.Quantity() - 1); err != nil {
		return nil, fmt.Errorf("failed to purchase %q: %w", p.Name(), err)
	}
	s.cart.Add(p)
	s.purchases.Add(ctx, 1, outcomeConfirmed)
	s.logger.InfoContext(ctx, "Product purchased", "product", p.Name(), "remaining", p.Quantity(), "in_cart", s.cart.Len())

	return &Receipt{Quote: Quote{Product: *toDto(p), Units: quote.Units, Amount: quote.Amount}}, nil
}

// QuoteCancellation reports the units of the product held by the cart and their refund.
func (s *Service) QuoteCancellation(_ context.Context, name string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, quote, err := s.quoteCancellation(name)
	return quote, err
}

// CancelPurchase restores the product's stock by every unit the cart holds but
// removes only one cart entry per call.
// Nothing changes when validation fails or confirm declines.
func (s *Service) CancelPurchase(ctx context.Context, name string, confirm Confirmation) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "Service.CancelPurchase", trace.WithAttributes(attribute.String("product.name", name)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, quote, err := s.quoteCancellation(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if confirm != nil && !confirm(*quote) {
		span.SetAttributes(attribute.Bool("declined", true))
		s.logger.InfoContext(ctx, "Cancellation declined", "product", p.Name())
		s.cancellations.Add(ctx, 1, outcomeDeclined)
		return &Receipt{Quote: *quote, Declined: true}, nil
	}

	if err := p.SetQuantity(p.Quantity() + quote.Units); err != nil {
		return nil, fmt.Errorf("failed to cancel purchase of %q: %w", p.Name(), err)
	}
	s.cart.RemoveOne(p)
	s.cancellations.Add(ctx, 1, outcomeConfirmed)
	s.logger.InfoContext(ctx, "Purchase cancelled", "product", p.Name(), "returned", quote.Units, "refund", quote.Amount.String())

	return &Receipt{Quote: Quote{Product: *toDto(p), Units: quote.Units, Amount: quote.Amount}}, nil
}

// ListCart returns the cart in the requested order.
func (s *Service) ListCart(_ context.Context, order product.SortOrder) CartDto {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Sort(order)
	items := toDtos(s.cart.Contents())
	return CartDto{
		Items: items,
		Count: len(items),
		Total: s.cart.Total(),
	}
}

// EmptyCart clears the cart.
func (s *Service) EmptyCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Empty()
	s.logger.InfoContext(ctx, "Cart emptied")
}

func (s *Service) lookup(name string) (*product.Product, error) {
	p, found := s.inventory.FindByName(name)
	if !found {
		return nil, fmt.Errorf("failed to find product %q: %w", name, perrors.ErrProductNotFound)
	}
	return p, nil
}

func (s *Service) quotePurchase(name string) (*product.Product, *Quote, error) {
	p, err := s.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	if p.Quantity() <= 0 {
		return nil, nil, fmt.Errorf("failed to purchase %q: %w", p.Name(), perrors.ErrOutOfStock)
	}
	return p, &Quote{Product: *toDto(p), Units: 1, Amount: p.Price()}, nil
}

func (s *Service) quoteCancellation(name string) (*product.Product, *Quote, error) {
	p, err := s.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	inCart := s.cart.Count(p)
	if inCart == 0 {
		return nil, nil, fmt.Errorf("failed to cancel purchase of %q: %w", p.Name(), perrors.ErrNotInCart)
	}
	refund := p.Price().Mul(decimal.NewFromInt(int64(inCart)))
	return p, &Quote{Product: *toDto(p), Units: inCart, Amount: refund}, nil
}

// toDto converts a product.Product to a ProductDto.
func toDto(p *product.Product) *ProductDto {
	dto := &ProductDto{
		ID:          p.ID().String(),
		Name:        p.Name(),
		Description: p.Description(),
		Type:        p.Type(),
		Price:       p.Price(),
		Quantity:    p.Quantity(),
	}
	attribute := p.Attribute()
	switch p.Kind() {
	case product.KindWeapon:
		dto.Damage = &attribute
	case product.KindArmor:
		dto.Defense = &attribute
	case product.KindHealth:
		dto.HealingPower = &attribute
	}
	return dto
}

func toDtos(products []*product.Product) []ProductDto {
	list := make([]ProductDto, len(products))
	for i, p := range products {
		list[i] = *toDto(p)
	}
	return list
}
