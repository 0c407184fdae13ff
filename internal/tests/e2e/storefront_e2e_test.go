// Package e2e provides end-to-end tests for the storefront application.
// The suite starts PostgreSQL with testcontainers-go, applies the catalog migrations,
// seeds the catalog_products table and serves the real application handler from an
// httptest.Server. Every test reloads the catalog, so inventory and cart start fresh.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/storefront/app"
	"github.com/abgdnv/storefront/internal/storefront/service"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "STOREFRONT_SKIP_E2E_TESTS"

const (
	inventoryURL = "/api/v1/inventory"
	cartURL      = "/api/v1/cart"
)

// StorefrontE2ESuite runs the HTTP API against a catalog stored in PostgreSQL.
type StorefrontE2ESuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	server      *httptest.Server
	httpClient  *http.Client
	appCfg      *config.Config
	logger      *slog.Logger
	ctx         context.Context
}

// testConfig points the catalog at the container database.
func testConfig(dbURL string) *config.Config {
	var cfg config.Config
	cfg.HTTPServer.Port = 0 // httptest.Server assigns the port
	cfg.HTTPServer.MaxHeaderBytes = 1 << 20
	cfg.HTTPServer.Timeout.Read = 10 * time.Minute
	cfg.HTTPServer.Timeout.Write = 10 * time.Minute
	cfg.HTTPServer.Timeout.Idle = 60 * time.Minute
	cfg.HTTPServer.Timeout.ReadHeader = 5 * time.Minute
	cfg.Catalog.Source = config.SourcePostgres
	cfg.Database.URL = dbURL
	cfg.Database.Timeout = 10 * time.Second
	return &cfg
}

func (s *StorefrontE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// 1. Start a PostgreSQL container and wait until it accepts connections.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 2. Connect and ping with retries
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgx pool")
	for i := range 10 {
		s.logger.Info("Pinging E2E PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 3. Apply the catalog migrations
	wd, _ := os.Getwd()
	sourceURL := "file://" + filepath.Join(wd, "..", "..", "storefront", "catalog", "migrations")
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for E2E tests")

	s.appCfg = testConfig(connStr)
	s.httpClient = &http.Client{Timeout: 30 * time.Second}
}

func (s *StorefrontE2ESuite) TearDownSuite() {
	s.logger.Info("Tearing down E2E suite...")
	if s.server != nil {
		s.server.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

// SetupTest seeds the catalog and starts a fresh application on it.
func (s *StorefrontE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE catalog_products RESTART IDENTITY")
	require.NoError(s.T(), err, "Failed to truncate catalog_products table")
	_, err = s.dbPool.Exec(s.ctx, `
INSERT INTO catalog_products (name, description, price, quantity, kind, attribute) VALUES
    ('Sword', 'basic blade', 10.00, 3, 'Weapon', 5),
    ('Potion', 'restores a little health', 2.50, 4, 'Health', 20),
    ('Iron Helmet', 'dented but sturdy', 25.50, 0, 'Armor', 7)`)
	require.NoError(s.T(), err, "Failed to seed catalog_products table")

	if s.server != nil {
		s.server.Close()
	}
	products, loadErr := app.LoadCatalog(s.ctx, s.appCfg, s.logger)
	require.NoError(s.T(), loadErr, "Failed to load the catalog")
	deps := app.SetupDependencies(products, nil, s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
}

func TestStorefrontE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(StorefrontE2ESuite))
}

// --------------------------------------------------------------------------
// ---------- Payload structures and Helper methods for E2E tests -----------
// --------------------------------------------------------------------------

type confirmPayload struct {
	Confirm bool `json:"confirm"`
}

func (s *StorefrontE2ESuite) listInventory(sort string) ([]service.ProductDto, int) {
	s.T().Helper()
	var products []service.ProductDto
	status := s.doAndDecode(http.MethodGet, inventoryURL+"?sort="+sort, nil, &products)
	return products, status
}

func (s *StorefrontE2ESuite) findByName(name string) (service.ProductDto, int) {
	s.T().Helper()
	var product service.ProductDto
	status := s.doAndDecode(http.MethodGet, inventoryURL+"/"+url.PathEscape(name), nil, &product)
	return product, status
}

func (s *StorefrontE2ESuite) purchase(name string, confirm bool) (service.Receipt, int) {
	s.T().Helper()
	var receipt service.Receipt
	status := s.doAndDecode(http.MethodPost, inventoryURL+"/"+url.PathEscape(name)+"/purchase", confirmPayload{confirm}, &receipt)
	return receipt, status
}

func (s *StorefrontE2ESuite) cancel(name string, confirm bool) (service.Receipt, int) {
	s.T().Helper()
	var receipt service.Receipt
	status := s.doAndDecode(http.MethodPost, cartURL+"/"+url.PathEscape(name)+"/cancellation", confirmPayload{confirm}, &receipt)
	return receipt, status
}

func (s *StorefrontE2ESuite) listCart(sort string) (service.CartDto, int) {
	s.T().Helper()
	var cart service.CartDto
	status := s.doAndDecode(http.MethodGet, cartURL+"?sort="+sort, nil, &cart)
	return cart, status
}

// doAndDecode decodes a 200 response into dst and returns the status code.
func (s *StorefrontE2ESuite) doAndDecode(method, path string, payload, dst any) int {
	s.T().Helper()
	bodyBytes, statusCode := s.doRequest(method, path, payload)
	if statusCode == http.StatusOK {
		require.NoError(s.T(), json.Unmarshal(bodyBytes, dst), "Failed to decode response: %s", bodyBytes)
	}
	return statusCode
}

func (s *StorefrontE2ESuite) doRequest(method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		require.NoError(s.T(), resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}

func names(products []service.ProductDto) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

// --------------------------------------------------------------
// ---------------------- E2E test methods ----------------------
// --------------------------------------------------------------

func (s *StorefrontE2ESuite) TestListInventory_E2E() {
	testCases := []struct {
		sort          string
		expectedCode  int
		expectedNames []string
	}{
		{sort: "", expectedCode: http.StatusOK, expectedNames: []string{"Sword", "Potion", "Iron Helmet"}},
		{sort: "name_asc", expectedCode: http.StatusOK, expectedNames: []string{"Iron Helmet", "Potion", "Sword"}},
		{sort: "name_desc", expectedCode: http.StatusOK, expectedNames: []string{"Sword", "Potion", "Iron Helmet"}},
		{sort: "price_asc", expectedCode: http.StatusOK, expectedNames: []string{"Potion", "Sword", "Iron Helmet"}},
		{sort: "price_desc", expectedCode: http.StatusOK, expectedNames: []string{"Iron Helmet", "Sword", "Potion"}},
		{sort: "popularity", expectedCode: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		s.T().Run("sort="+tc.sort, func(t *testing.T) {
			products, status := s.listInventory(tc.sort)

			require.Equal(t, tc.expectedCode, status)
			if tc.expectedNames != nil {
				assert.Equal(t, tc.expectedNames, names(products))
			}
		})
	}
}

func (s *StorefrontE2ESuite) TestFindByName_E2E() {
	for _, query := range []string{"sword", "SWORD", "Sword"} {
		found, status := s.findByName(query)
		s.Require().Equal(http.StatusOK, status)
		s.Equal("Sword", found.Name)
		s.Require().NotNil(found.Damage)
		s.Equal(5, *found.Damage)
	}

	helmet, status := s.findByName("iron helmet")
	s.Require().Equal(http.StatusOK, status)
	s.Require().NotNil(helmet.Defense)
	s.Equal(7, *helmet.Defense)

	_, status = s.findByName("Bow")
	s.Equal(http.StatusNotFound, status)
}

func (s *StorefrontE2ESuite) TestPurchaseAndCancel_E2E() {
	// two purchases leave one Sword in stock
	for range 2 {
		receipt, status := s.purchase("Sword", true)
		s.Require().Equal(http.StatusOK, status)
		s.False(receipt.Declined)
	}
	sword, _ := s.findByName("Sword")
	s.Equal(1, sword.Quantity)

	cart, status := s.listCart("")
	s.Require().Equal(http.StatusOK, status)
	s.Equal(2, cart.Count)
	s.True(decimal.NewFromInt(20).Equal(cart.Total), cart.Total.String())

	// cancellation refunds every held unit but removes one entry
	receipt, status := s.cancel("sword", true)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(2, receipt.Units)
	s.True(decimal.NewFromInt(20).Equal(receipt.Amount), receipt.Amount.String())

	sword, _ = s.findByName("Sword")
	s.Equal(3, sword.Quantity)
	cart, _ = s.listCart("")
	s.Equal(1, cart.Count)
}

func (s *StorefrontE2ESuite) TestPurchase_Errors_E2E() {
	testCases := []struct {
		name         string
		product      string
		body         any
		expectedCode int
	}{
		{name: "out of stock", product: "Iron Helmet", body: confirmPayload{true}, expectedCode: http.StatusConflict},
		{name: "unknown product", product: "Bow", body: confirmPayload{true}, expectedCode: http.StatusNotFound},
		{name: "missing confirm", product: "Sword", body: map[string]any{}, expectedCode: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		s.T().Run(tc.name, func(t *testing.T) {
			_, status := s.doRequest(http.MethodPost, fmt.Sprintf("%s/%s/purchase", inventoryURL, url.PathEscape(tc.product)), tc.body)

			require.Equal(t, tc.expectedCode, status)
		})
	}

	cart, _ := s.listCart("")
	s.Equal(0, cart.Count, "failed purchases leave the cart untouched")
}

func (s *StorefrontE2ESuite) TestDeclinedPurchase_E2E() {
	receipt, status := s.purchase("Potion", false)

	s.Require().Equal(http.StatusOK, status)
	s.True(receipt.Declined)
	potion, _ := s.findByName("Potion")
	s.Equal(4, potion.Quantity)
}

func (s *StorefrontE2ESuite) TestCancel_NotInCart_E2E() {
	_, status := s.purchase("Sword", true)
	s.Require().Equal(http.StatusOK, status)

	_, status = s.cancel("Potion", true)

	s.Equal(http.StatusConflict, status)
	potion, _ := s.findByName("Potion")
	s.Equal(4, potion.Quantity)
}

func (s *StorefrontE2ESuite) TestEmptyCart_E2E() {
	for _, name := range []string{"Sword", "Potion"} {
		_, status := s.purchase(name, true)
		s.Require().Equal(http.StatusOK, status)
	}
	cart, _ := s.listCart("price_asc")
	s.Equal([]string{"Potion", "Sword"}, names(cart.Items))

	_, status := s.doRequest(http.MethodDelete, cartURL, nil)
	s.Require().Equal(http.StatusNoContent, status)

	cart, _ = s.listCart("")
	s.Equal(0, cart.Count)
	s.Empty(cart.Items)
	sword, _ := s.findByName("Sword")
	s.Equal(2, sword.Quantity, "emptying the cart does not restock")
}
