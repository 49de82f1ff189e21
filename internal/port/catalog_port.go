package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
)

// CatalogSource returns current authoritative catalog entries.
// Unknown ids return an error wrapping domain.ErrNotFound.
type CatalogSource interface {
	Product(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	Course(ctx context.Context, courseID uuid.UUID) (domain.Course, error)
}
