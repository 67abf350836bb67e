// Package storefront exposes the catalog, cart, order and inventory endpoints.
// None of them is backed by an implementation yet; each answers 501 so
// clients can tell a missing feature from an empty result.
package storefront

import (
	"net/http"
	"strconv"

	"github.com/bissquit/storefront/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Feature names reported in 501 responses.
const (
	FeatureProductDetails = "product details"
	FeatureInventory      = "inventory management"
	FeatureCart           = "cart"
	FeatureOrderPlacement = "order placement"
	FeatureOrderHistory   = "order history"
)

// Handler handles HTTP requests for storefront features.
type Handler struct{}

// NewHandler creates a new storefront handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers storefront routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/products/{productID}", h.GetProduct)
	r.Post("/products", h.AddProductToInventory)
	r.Post("/cart", h.AddProductToCart)
	r.Post("/orders", h.PlaceOrder)
	r.Get("/orders", h.ListOrders)
}

// GetProduct handles GET /products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	httputil.NotImplemented(w, FeatureProductDetails)
}

// AddProductToInventory handles POST /products.
func (h *Handler) AddProductToInventory(w http.ResponseWriter, _ *http.Request) {
	httputil.NotImplemented(w, FeatureInventory)
}

// AddProductToCart handles POST /cart.
func (h *Handler) AddProductToCart(w http.ResponseWriter, _ *http.Request) {
	httputil.NotImplemented(w, FeatureCart)
}

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, _ *http.Request) {
	httputil.NotImplemented(w, FeatureOrderPlacement)
}

// ListOrders handles GET /orders.
func (h *Handler) ListOrders(w http.ResponseWriter, _ *http.Request) {
	httputil.NotImplemented(w, FeatureOrderHistory)
}
