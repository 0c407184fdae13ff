package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/storefront/cart"
	"github.com/abgdnv/storefront/internal/storefront/inventory"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/abgdnv/storefront/internal/storefront/service"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type storefrontTestContext struct {
	products []*product.Product
	inv      *inventory.Inventory
	cart     *cart.Cart
	service  *service.Service
	receipt  *service.Receipt
	found    *service.ProductDto
	err      error
}

func (c *storefrontTestContext) reset() {
	c.products = nil
	c.inv = nil
	c.cart = nil
	c.service = nil
	c.receipt = nil
	c.found = nil
	c.err = nil
}

// ensureService builds the service lazily so Background steps can keep adding products.
func (c *storefrontTestContext) ensureService() error {
	if c.service != nil {
		return nil
	}
	inv, err := inventory.New(c.products...)
	if err != nil {
		return err
	}
	c.inv = inv
	c.cart = cart.New(inv)
	c.service = service.NewService(inv, c.cart, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return nil
}

func (c *storefrontTestContext) anInventoryWithTheWeapon(name, description string, price float64, quantity, damage int) error {
	p, err := product.NewWeapon(name, description, decimal.NewFromFloat(price), quantity, damage)
	if err != nil {
		return err
	}
	c.products = append(c.products, p)
	return nil
}

func (c *storefrontTestContext) anInventoryWithTheHealthItem(name, description string, price float64, quantity, healing int) error {
	p, err := product.NewHealth(name, description, decimal.NewFromFloat(price), quantity, healing)
	if err != nil {
		return err
	}
	c.products = append(c.products, p)
	return nil
}

func (c *storefrontTestContext) theInventoryQuantityIsSetTo(name string, quantity int) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	p, ok := c.inv.FindByName(name)
	if !ok {
		return fmt.Errorf("product %q not in inventory", name)
	}
	return p.SetQuantity(quantity)
}

func (c *storefrontTestContext) iPurchase(name, answer string) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	c.receipt, c.err = c.service.Purchase(context.Background(), name, confirmation(answer))
	return nil
}

func (c *storefrontTestContext) iCancelThePurchaseOf(name, answer string) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	c.receipt, c.err = c.service.CancelPurchase(context.Background(), name, confirmation(answer))
	return nil
}

func (c *storefrontTestContext) iLookUp(name string) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	c.found, c.err = c.service.FindByName(context.Background(), name)
	return nil
}

func (c *storefrontTestContext) theInventoryQuantityOfIs(name string, expected int) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	p, ok := c.inv.FindByName(name)
	if !ok {
		return fmt.Errorf("product %q not in inventory", name)
	}
	if p.Quantity() != expected {
		return fmt.Errorf("expected quantity %d for %q, got %d", expected, name, p.Quantity())
	}
	return nil
}

func (c *storefrontTestContext) theCartHoldsEntries(expected int, name string) error {
	if err := c.ensureService(); err != nil {
		return err
	}
	count := 0
	for _, p := range c.cart.Contents() {
		if p.Name() == name {
			count++
		}
	}
	if count != expected || c.cart.Len() != expected {
		return fmt.Errorf("expected %d %q entries, cart has %d of %d entries", expected, name, count, c.cart.Len())
	}
	return nil
}

func (c *storefrontTestContext) theCartIsEmpty() error {
	if err := c.ensureService(); err != nil {
		return err
	}
	if c.cart.Len() != 0 {
		return fmt.Errorf("expected an empty cart, got %d entries", c.cart.Len())
	}
	return nil
}

func (c *storefrontTestContext) theOperationFailsWith(message string) error {
	if c.err == nil {
		return errors.New("expected the operation to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *storefrontTestContext) theActionIsReportedAsDeclined() error {
	if c.err != nil {
		return fmt.Errorf("expected a declined receipt, got error: %w", c.err)
	}
	if c.receipt == nil || !c.receipt.Declined {
		return errors.New("expected the receipt to be declined")
	}
	return nil
}

func (c *storefrontTestContext) theRefundIs(amount float64) error {
	if c.err != nil {
		return fmt.Errorf("expected a receipt, got error: %w", c.err)
	}
	if !c.receipt.Amount.Equal(decimal.NewFromFloat(amount)) {
		return fmt.Errorf("expected refund %v, got %s", amount, c.receipt.Amount)
	}
	return nil
}

func (c *storefrontTestContext) theProductFoundIs(name string) error {
	if c.err != nil {
		return fmt.Errorf("expected a product, got error: %w", c.err)
	}
	if c.found.Name != name {
		return fmt.Errorf("expected %q, got %q", name, c.found.Name)
	}
	return nil
}

func confirmation(answer string) service.Confirmation {
	if answer == "confirm" {
		return service.Accept
	}
	return service.Decline
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an inventory with the weapon "([^"]*)" described as "([^"]*)" priced (\d+(?:\.\d+)?) with quantity (\d+) and damage (\d+)$`, tc.anInventoryWithTheWeapon)
	ctx.Step(`^an inventory with the health item "([^"]*)" described as "([^"]*)" priced (\d+(?:\.\d+)?) with quantity (\d+) and healing power (\d+)$`, tc.anInventoryWithTheHealthItem)
	ctx.Step(`^the inventory quantity of "([^"]*)" is set to (\d+)$`, tc.theInventoryQuantityIsSetTo)

	// When steps
	ctx.Step(`^I purchase "([^"]*)" and (confirm|decline)$`, tc.iPurchase)
	ctx.Step(`^I cancel the purchase of "([^"]*)" and (confirm|decline)$`, tc.iCancelThePurchaseOf)
	ctx.Step(`^I look up "([^"]*)"$`, tc.iLookUp)

	// Then steps
	ctx.Step(`^the inventory quantity of "([^"]*)" is (\d+)$`, tc.theInventoryQuantityOfIs)
	ctx.Step(`^the cart holds (\d+) "([^"]*)" entry$`, tc.theCartHoldsEntries)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
	ctx.Step(`^the action is reported as declined$`, tc.theActionIsReportedAsDeclined)
	ctx.Step(`^the refund is (\d+(?:\.\d+)?)$`, tc.theRefundIs)
	ctx.Step(`^the product found is "([^"]*)"$`, tc.theProductFoundIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
