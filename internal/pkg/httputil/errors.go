package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/storefront/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses Error.Error()
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// The mapped sentinel's message is used rather than the wrapped chain so
// internal details never reach the client. Unmapped errors are logged and
// answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = m.Error.Error()
			}
			Error(w, m.Status, msg)
			return
		}
	}
	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
