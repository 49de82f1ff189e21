package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const getProduct = `-- name: GetProduct :one
SELECT id, name, category, price_amount, price_currency, active, created_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.PriceAmount,
		&i.PriceCurrency,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}

const getCourse = `-- name: GetCourse :one
SELECT id, title, description, level, duration_hours, price_amount, price_currency, active, created_at
FROM courses
WHERE id = $1
`

func (q *Queries) GetCourse(ctx context.Context, id uuid.UUID) (Course, error) {
	row := q.db.QueryRow(ctx, getCourse, id)
	var i Course
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Level,
		&i.DurationHours,
		&i.PriceAmount,
		&i.PriceCurrency,
		&i.Active,
		&i.CreatedAt,
	)
	return i, err
}

const getCourseLessons = `-- name: GetCourseLessons :many
SELECT id, course_id, title, position, duration_minutes, content
FROM course_lessons
WHERE course_id = $1
ORDER BY position
`

func (q *Queries) GetCourseLessons(ctx context.Context, courseID uuid.UUID) ([]CourseLesson, error) {
	rows, err := q.db.Query(ctx, getCourseLessons, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CourseLesson
	for rows.Next() {
		var i CourseLesson
		if err := rows.Scan(
			&i.ID,
			&i.CourseID,
			&i.Title,
			&i.Position,
			&i.DurationMinutes,
			&i.Content,
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

const upsertProduct = `-- name: UpsertProduct :exec
INSERT INTO products (id, name, category, price_amount, price_currency, active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
    SET name           = EXCLUDED.name,
        category       = EXCLUDED.category,
        price_amount   = EXCLUDED.price_amount,
        price_currency = EXCLUDED.price_currency,
        active         = EXCLUDED.active
`

type UpsertProductParams struct {
	ID            uuid.UUID
	Name          string
	Category      string
	PriceAmount   decimal.Decimal
	PriceCurrency string
	Active        bool
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) error {
	_, err := q.db.Exec(ctx, upsertProduct,
		arg.ID,
		arg.Name,
		arg.Category,
		arg.PriceAmount,
		arg.PriceCurrency,
		arg.Active,
	)
	return err
}

const upsertCourse = `-- name: UpsertCourse :exec
INSERT INTO courses (id, title, description, level, duration_hours, price_amount, price_currency, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
    SET title          = EXCLUDED.title,
        description    = EXCLUDED.description,
        level          = EXCLUDED.level,
        duration_hours = EXCLUDED.duration_hours,
        price_amount   = EXCLUDED.price_amount,
        price_currency = EXCLUDED.price_currency,
        active         = EXCLUDED.active
`

type UpsertCourseParams struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Level         string
	DurationHours int32
	PriceAmount   decimal.Decimal
	PriceCurrency string
	Active        bool
}

func (q *Queries) UpsertCourse(ctx context.Context, arg UpsertCourseParams) error {
	_, err := q.db.Exec(ctx, upsertCourse,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Level,
		arg.DurationHours,
		arg.PriceAmount,
		arg.PriceCurrency,
		arg.Active,
	)
	return err
}

const deleteCourseLessons = `-- name: DeleteCourseLessons :exec
DELETE FROM course_lessons
WHERE course_id = $1
`

func (q *Queries) DeleteCourseLessons(ctx context.Context, courseID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteCourseLessons, courseID)
	return err
}

const insertCourseLesson = `-- name: InsertCourseLesson :exec
INSERT INTO course_lessons (id, course_id, title, position, duration_minutes, content)
VALUES ($1, $2, $3, $4, $5, $6)
`

type InsertCourseLessonParams struct {
	ID              uuid.UUID
	CourseID        uuid.UUID
	Title           string
	Position        int32
	DurationMinutes int32
	Content         string
}

func (q *Queries) InsertCourseLesson(ctx context.Context, arg InsertCourseLessonParams) error {
	_, err := q.db.Exec(ctx, insertCourseLesson,
		arg.ID,
		arg.CourseID,
		arg.Title,
		arg.Position,
		arg.DurationMinutes,
		arg.Content,
	)
	return err
}
