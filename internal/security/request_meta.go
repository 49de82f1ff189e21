package security

import (
	"context"

	"github.com/nikolayk812/artesano/internal/domain"
)

type requestMetaKey struct{}

func WithRequestMeta(ctx context.Context, meta domain.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the zero value outside of an HTTP request.
func RequestMetaFrom(ctx context.Context) domain.RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(domain.RequestMeta)
	return meta
}
