package middleware

import (
	"context"

	"github.com/caroduarte/lumina-backend/pkg/types"
)

type contextKey string

const ctxViewer contextKey = "viewer"

// ViewerFromContext returns the request's viewer. Requests that carried
// no credentials resolve to the zero (anonymous) viewer.
func ViewerFromContext(ctx context.Context) types.Viewer {
	if ctx == nil {
		return types.Viewer{}
	}
	if v, ok := ctx.Value(ctxViewer).(types.Viewer); ok {
		return v
	}
	return types.Viewer{}
}

// WithViewer injects the viewer into the context.
func WithViewer(ctx context.Context, viewer types.Viewer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxViewer, viewer)
}
