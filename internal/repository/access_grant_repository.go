package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
)

type accessGrantRepository struct {
	dbtx db.DBTX
	q    *db.Queries
}

func NewAccessGrant(pool *pgxpool.Pool) (port.AccessGrantRepository, error) {
	dbtx, err := dbtxFromPool(pool)
	if err != nil {
		return nil, err
	}

	return &accessGrantRepository{
		dbtx: dbtx,
		q:    db.New(dbtx),
	}, nil
}

func (r *accessGrantRepository) InsertGrant(ctx context.Context, grant domain.AccessGrant) (domain.AccessGrant, bool, error) {
	if grant.Token == "" {
		return domain.AccessGrant{}, false, fmt.Errorf("token is empty")
	}

	type result struct {
		grant   db.AccessGrant
		created bool
	}

	res, err := withTx(ctx, r.dbtx, func(q *db.Queries) (result, error) {
		inserted, err := q.InsertAccessGrant(ctx, db.InsertAccessGrantParams{
			Email:     grant.Email,
			CourseID:  grant.CourseID,
			OrderID:   grant.OrderID,
			Token:     grant.Token,
			ExpiresAt: grant.ExpiresAt,
		})
		if err == nil {
			return result{grant: inserted, created: true}, nil
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return result{}, fmt.Errorf("q.InsertAccessGrant: %w", err)
		}

		existing, err := q.GetAccessGrantByOrderCourse(ctx, grant.OrderID, grant.CourseID)
		if err != nil {
			return result{}, fmt.Errorf("q.GetAccessGrantByOrderCourse: %w", err)
		}

		return result{grant: existing}, nil
	})
	if err != nil {
		return domain.AccessGrant{}, false, fmt.Errorf("withTx: %w", err)
	}

	return mapDBAccessGrantToDomain(res.grant), res.created, nil
}

func (r *accessGrantRepository) GetGrantByToken(ctx context.Context, token string) (domain.AccessGrant, error) {
	if token == "" {
		return domain.AccessGrant{}, fmt.Errorf("token is empty")
	}

	grant, err := r.q.GetAccessGrantByToken(ctx, token)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("q.GetAccessGrantByToken: %w", mapNoRows(err))
	}

	return mapDBAccessGrantToDomain(grant), nil
}

func (r *accessGrantRepository) ListGrantsByEmail(ctx context.Context, email string) ([]domain.AccessGrant, error) {
	if email == "" {
		return nil, fmt.Errorf("email is empty")
	}

	grants, err := r.q.ListAccessGrantsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("q.ListAccessGrantsByEmail: %w", err)
	}

	return lo.Map(grants, func(g db.AccessGrant, _ int) domain.AccessGrant {
		return mapDBAccessGrantToDomain(g)
	}), nil
}

func (r *accessGrantRepository) TouchGrant(ctx context.Context, grantID uuid.UUID, at time.Time) error {
	cmdTag, err := r.q.TouchAccessGrant(ctx, grantID, at)
	if err != nil {
		return fmt.Errorf("q.TouchAccessGrant: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.TouchAccessGrant: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *accessGrantRepository) UpdateProgress(ctx context.Context, grantID uuid.UUID, progress int, completed bool) error {
	cmdTag, err := r.q.UpdateAccessGrantProgress(ctx, grantID, int32(domain.ClampProgress(progress)), completed)
	if err != nil {
		return fmt.Errorf("q.UpdateAccessGrantProgress: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.UpdateAccessGrantProgress: %w", domain.ErrNotFound)
	}

	return nil
}

func mapDBAccessGrantToDomain(g db.AccessGrant) domain.AccessGrant {
	return domain.AccessGrant{
		ID:           g.ID,
		Email:        g.Email,
		CourseID:     g.CourseID,
		OrderID:      g.OrderID,
		Token:        g.Token,
		ExpiresAt:    g.ExpiresAt,
		Progress:     int(g.Progress),
		Completed:    g.Completed,
		LastAccessAt: g.LastAccessAt,
		Active:       g.Active,
		CreatedAt:    g.CreatedAt,
	}
}
