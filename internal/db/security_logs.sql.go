package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const insertSecurityLog = `-- name: InsertSecurityLog :exec
INSERT INTO security_logs (id, kind, severity, details, ip, user_agent, method, url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertSecurityLogParams struct {
	ID        uuid.UUID
	Kind      string
	Severity  string
	Details   []byte
	Ip        string
	UserAgent string
	Method    string
	Url       string
	CreatedAt time.Time
}

func (q *Queries) InsertSecurityLog(ctx context.Context, arg InsertSecurityLogParams) error {
	_, err := q.db.Exec(ctx, insertSecurityLog,
		arg.ID,
		arg.Kind,
		arg.Severity,
		arg.Details,
		arg.Ip,
		arg.UserAgent,
		arg.Method,
		arg.Url,
		arg.CreatedAt,
	)
	return err
}

const searchSecurityLogs = `-- name: SearchSecurityLogs :many
SELECT id, kind, severity, details, ip, user_agent, method, url, created_at
FROM security_logs
WHERE ($1::text[] IS NULL OR kind = ANY ($1::text[]))
  AND ($2::text[] IS NULL OR severity = ANY ($2::text[]))
  AND ($3::timestamptz IS NULL OR created_at > $3::timestamptz)
  AND ($4::timestamptz IS NULL OR created_at < $4::timestamptz)
ORDER BY created_at DESC
LIMIT $5
`

type SearchSecurityLogsParams struct {
	Kinds         []string
	Severities    []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int32
}

func (q *Queries) SearchSecurityLogs(ctx context.Context, arg SearchSecurityLogsParams) ([]SecurityLog, error) {
	rows, err := q.db.Query(ctx, searchSecurityLogs,
		arg.Kinds,
		arg.Severities,
		arg.CreatedAfter,
		arg.CreatedBefore,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SecurityLog
	for rows.Next() {
		var i SecurityLog
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.Severity,
			&i.Details,
			&i.Ip,
			&i.UserAgent,
			&i.Method,
			&i.Url,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
