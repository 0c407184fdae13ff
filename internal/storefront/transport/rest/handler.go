// Package rest exposes the storefront operations over HTTP.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/platform/web"
	perrors "github.com/abgdnv/storefront/internal/storefront/errors"
	"github.com/abgdnv/storefront/internal/storefront/product"
	"github.com/abgdnv/storefront/internal/storefront/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ConfirmDto carries the shopper's answer to a quote.
type ConfirmDto struct {
	Confirm *bool `json:"confirm" validate:"required"`
}

type Handler struct {
	service  service.StoreService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the provided service.
func NewHandler(service service.StoreService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.ListInventory)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.FindByName)
				r.Get("/purchase", h.QuotePurchase)
				r.Post("/purchase", h.Purchase)
			})
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.ListCart)
			r.Delete("/", h.EmptyCart)
			r.Get("/{name}/cancellation", h.QuoteCancellation)
			r.Post("/{name}/cancellation", h.CancelPurchase)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// ListInventory returns the inventory, sorted when the sort query parameter is set.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	order, ok := h.parseSort(w, r, mLogger)
	if !ok {
		return
	}
	list := h.service.ListInventory(r.Context(), order)
	mLogger.DebugContext(r.Context(), "Listed inventory", "sort", order, "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByName returns a product by its name, ignoring case.
func (h *Handler) FindByName(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")

	found, err := h.service.FindByName(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// QuotePurchase reports what a purchase of the product would cost, without buying it.
func (h *Handler) QuotePurchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")

	quote, err := h.service.QuotePurchase(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, quote)
}

// Purchase moves one unit of the product into the cart when the body confirms it.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")
	confirm, ok := h.decodeConfirm(w, r, mLogger)
	if !ok {
		return
	}

	receipt, err := h.service.Purchase(r.Context(), name, answer(confirm))
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Purchase handled", "name", receipt.Product.Name, "declined", receipt.Declined)
	web.RespondJSON(w, mLogger, http.StatusOK, receipt)
}

// ListCart returns the cart contents with their count and total.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	order, ok := h.parseSort(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.ListCart(r.Context(), order))
}

// EmptyCart removes every cart entry.
func (h *Handler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	h.service.EmptyCart(r.Context())
	h.loggerWithReqID(r).InfoContext(r.Context(), "Cart emptied")
	w.WriteHeader(http.StatusNoContent)
}

// QuoteCancellation reports the refund a cancellation of the product would give.
func (h *Handler) QuoteCancellation(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")

	quote, err := h.service.QuoteCancellation(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, quote)
}

// CancelPurchase returns the product's cart units to the inventory when the body confirms it.
func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := r.PathValue("name")
	confirm, ok := h.decodeConfirm(w, r, mLogger)
	if !ok {
		return
	}

	receipt, err := h.service.CancelPurchase(r.Context(), name, answer(confirm))
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Cancellation handled", "name", receipt.Product.Name, "declined", receipt.Declined)
	web.RespondJSON(w, mLogger, http.StatusOK, receipt)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) parseSort(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (product.SortOrder, bool) {
	order, err := product.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid sort order", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid sort order: %s", r.URL.Query().Get("sort")))
		return product.SortUnsorted, false
	}
	return order, true
}

func (h *Handler) decodeConfirm(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (bool, bool) {
	var dto ConfirmDto
	if err := web.DecodeJSON(r, &dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false, false
	}
	if err := h.validate.Struct(dto); err != nil {
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "error", err)
		web.RespondValidationError(w, mLogger, err)
		return false, false
	}
	return *dto.Confirm, true
}

// respondServiceError maps the storefront error taxonomy onto HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, name string) {
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "name", name)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product %s not found", name))
	case errors.Is(err, perrors.ErrOutOfStock):
		mLogger.WarnContext(r.Context(), "Product out of stock", "name", name)
		web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Product %s is out of stock", name))
	case errors.Is(err, perrors.ErrNotInCart):
		mLogger.WarnContext(r.Context(), "Product not in cart", "name", name)
		web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Product %s is not in the cart", name))
	default:
		mLogger.ErrorContext(r.Context(), "Unexpected storefront error", "name", name, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID, _ := web.GetRequestID(r.Context())
	return h.logger.With("request_id", reqID)
}

func answer(confirm bool) service.Confirmation {
	if confirm {
		return service.Accept
	}
	return service.Decline
}
