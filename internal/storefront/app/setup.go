// Package app wires the storefront components together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/platform/bootstrap"
	"github.com/abgdnv/storefront/internal/platform/server"
	"github.com/abgdnv/storefront/internal/storefront/cart"
	"github.com/abgdnv/storefront/internal/storefront/catalog"
	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/abgdnv/storefront/internal/storefront/inventory"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/abgdnv/storefront/internal/storefront/service"
	grpcImpl "github.com/abgdnv/storefront/internal/storefront/transport/grpc"
	"github.com/abgdnv/storefront/internal/storefront/transport/rest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
)

type Dependencies struct {
	StoreService service.StoreService
	Health       *grpcImpl.Health
	Metrics      *Metrics
	Logger       *slog.Logger
}

// Metrics is the Prometheus scrape endpoint backing the global meter provider.
type Metrics struct {
	Path     string
	Handler  http.Handler
	Shutdown func(context.Context) error
}

// SetupMetrics installs a Prometheus-backed global meter provider.
// It must run before SetupDependencies so the service counters bind to it.
func SetupMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mp, err := bootstrap.NewMeterProvider(reg)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)

	return &Metrics{
		Path:     cfg.Path,
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Shutdown: mp.Shutdown,
	}, nil
}

// LoadCatalog reads the products from the source selected by cfg.
// A postgres source gets its own pool, closed once the catalog is read.
func LoadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]*product.Product, error) {
	loader := catalog.NewLoader(logger)
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", perrors.ErrCatalogLoad, err)
		}
		defer dbPool.Close()
		return loader.Load(ctx, catalog.NewPgSource(dbPool))
	default:
		return loader.Load(ctx, catalog.NewFileSource(cfg.Catalog.Path))
	}
}

// SetupDependencies builds the storefront around the loaded products.
// When loadErr is set, or the products cannot form an inventory, the storefront starts
// with an empty inventory and the health service keeps reporting NOT_SERVING.
func SetupDependencies(products []*product.Product, loadErr error, logger *slog.Logger) *Dependencies {
	health := grpcImpl.NewHealth(logger)

	inv, err := inventory.New(products...)
	if loadErr == nil && err != nil {
		loadErr = fmt.Errorf("%w: %w", perrors.ErrCatalogLoad, err)
	}
	if loadErr != nil {
		logger.Error("Catalog not loaded, starting with an empty inventory", "error", loadErr)
		inv, _ = inventory.New()
	} else {
		logger.Info("Inventory ready", "products", inv.Len())
	}
	health.SetReady(loadErr == nil)

	return &Dependencies{
		StoreService: service.NewService(inv, cart.New(inv), logger),
		Health:       health,
		Logger:       logger,
	}
}

// SetupHttpHandler builds the router with every storefront route and middleware.
// Used by E2E tests to exercise the HTTP API without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	storeHandler := rest.NewHandler(deps.StoreService, deps.Logger)
	storeHandler.RegisterRoutes(mux)

	if deps.Metrics != nil {
		mux.Handle(deps.Metrics.Path, deps.Metrics.Handler)
	}
}

// SetupHttpServer creates and configures the HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// SetupGrpcServer creates the gRPC server carrying the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(reflectionEnabled, deps.Health.Register)
}
