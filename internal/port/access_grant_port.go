package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
)

type AccessGrantRepository interface {
	// InsertGrant is idempotent per (order, course): when a grant already exists
	// the stored one is returned with created=false.
	InsertGrant(ctx context.Context, grant domain.AccessGrant) (_ domain.AccessGrant, created bool, _ error)

	GetGrantByToken(ctx context.Context, token string) (domain.AccessGrant, error)
	ListGrantsByEmail(ctx context.Context, email string) ([]domain.AccessGrant, error)

	TouchGrant(ctx context.Context, grantID uuid.UUID, at time.Time) error
	UpdateProgress(ctx context.Context, grantID uuid.UUID, progress int, completed bool) error
}
