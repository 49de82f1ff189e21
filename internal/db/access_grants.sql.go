package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const accessGrantColumns = `id, email, course_id, order_id, token, expires_at, progress, completed, last_access_at, active, created_at`

func scanAccessGrant(row interface{ Scan(dest ...any) error }) (AccessGrant, error) {
	var i AccessGrant
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.CourseID,
		&i.OrderID,
		&i.Token,
		&i.ExpiresAt,
		&i.Progress,
		&i.Completed,
		&i.LastAccessAt,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}

const insertAccessGrant = `-- name: InsertAccessGrant :one
INSERT INTO access_grants (email, course_id, order_id, token, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (order_id, course_id) DO NOTHING
RETURNING ` + accessGrantColumns + `
`

type InsertAccessGrantParams struct {
	Email     string
	CourseID  uuid.UUID
	OrderID   uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// InsertAccessGrant returns pgx.ErrNoRows when a grant for (order_id, course_id) already exists.
func (q *Queries) InsertAccessGrant(ctx context.Context, arg InsertAccessGrantParams) (AccessGrant, error) {
	return scanAccessGrant(q.db.QueryRow(ctx, insertAccessGrant,
		arg.Email,
		arg.CourseID,
		arg.OrderID,
		arg.Token,
		arg.ExpiresAt,
	))
}

const getAccessGrantByOrderCourse = `-- name: GetAccessGrantByOrderCourse :one
SELECT ` + accessGrantColumns + `
FROM access_grants
WHERE order_id = $1
  AND course_id = $2
`

func (q *Queries) GetAccessGrantByOrderCourse(ctx context.Context, orderID, courseID uuid.UUID) (AccessGrant, error) {
	return scanAccessGrant(q.db.QueryRow(ctx, getAccessGrantByOrderCourse, orderID, courseID))
}

const getAccessGrantByToken = `-- name: GetAccessGrantByToken :one
SELECT ` + accessGrantColumns + `
FROM access_grants
WHERE token = $1
`

func (q *Queries) GetAccessGrantByToken(ctx context.Context, token string) (AccessGrant, error) {
	return scanAccessGrant(q.db.QueryRow(ctx, getAccessGrantByToken, token))
}

const listAccessGrantsByEmail = `-- name: ListAccessGrantsByEmail :many
SELECT ` + accessGrantColumns + `
FROM access_grants
WHERE email = $1
ORDER BY created_at DESC
`

func (q *Queries) ListAccessGrantsByEmail(ctx context.Context, email string) ([]AccessGrant, error) {
	rows, err := q.db.Query(ctx, listAccessGrantsByEmail, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccessGrant
	for rows.Next() {
		i, err := scanAccessGrant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const touchAccessGrant = `-- name: TouchAccessGrant :execresult
UPDATE access_grants
SET last_access_at = $2
WHERE id = $1
`

func (q *Queries) TouchAccessGrant(ctx context.Context, id uuid.UUID, at time.Time) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, touchAccessGrant, id, at)
}

const updateAccessGrantProgress = `-- name: UpdateAccessGrantProgress :execresult
UPDATE access_grants
SET progress  = $2,
    completed = $3
WHERE id = $1
`

func (q *Queries) UpdateAccessGrantProgress(ctx context.Context, id uuid.UUID, progress int32, completed bool) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, updateAccessGrantProgress, id, progress, completed)
}
