package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/asistencia/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to ctx for audit logging.
// RemoteAddr has already been normalised by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, r.RemoteAddr)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
