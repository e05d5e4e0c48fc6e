package middleware

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxIdentity      ctxKey = "identity"
)

func GetCorrelationID(ctx context.Context) string {
	if v := ctx.Value(ctxCorrelationID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithCorrelationID is used by code paths that run outside a request, e.g. tests.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, cid)
}

// GetIdentity returns the caller identity stored by Sessions.Identity.
func GetIdentity(ctx context.Context) cart.Identity {
	if v := ctx.Value(ctxIdentity); v != nil {
		if id, ok := v.(cart.Identity); ok {
			return id
		}
	}
	return cart.Identity{}
}

func WithIdentity(ctx context.Context, id cart.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}
