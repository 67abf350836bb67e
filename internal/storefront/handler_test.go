package storefront

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler().RegisterRoutes(r)
	return r
}

func TestHandler_NotImplemented(t *testing.T) {
	tests := []struct {
		method  string
		path    string
		feature string
	}{
		{method: http.MethodGet, path: "/products/42", feature: FeatureProductDetails},
		{method: http.MethodPost, path: "/products", feature: FeatureInventory},
		{method: http.MethodPost, path: "/cart?productId=1&quantity=2", feature: FeatureCart},
		{method: http.MethodPost, path: "/orders", feature: FeatureOrderPlacement},
		{method: http.MethodGet, path: "/orders", feature: FeatureOrderHistory},
	}

	router := newRouter()

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusNotImplemented, rec.Code)

			var body struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.feature+" is not implemented", body.Error.Message)
		})
	}
}

func TestGetProduct_InvalidID(t *testing.T) {
	router := newRouter()

	for _, id := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
}
