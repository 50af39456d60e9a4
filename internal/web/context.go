package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// WithRequestMetadata adds the client IP to the request context for logging.
func WithRequestMetadata(r *http.Request) context.Context {
	return core.ContextWithIPAddress(r.Context(), clientIP(r))
}
