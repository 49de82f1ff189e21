package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// CatalogRepository is the durable catalog source.
type CatalogRepository struct {
	dbtx db.DBTX
	q    *db.Queries
}

func NewCatalog(pool *pgxpool.Pool) (*CatalogRepository, error) {
	dbtx, err := dbtxFromPool(pool)
	if err != nil {
		return nil, err
	}

	return &CatalogRepository{
		dbtx: dbtx,
		q:    db.New(dbtx),
	}, nil
}

func (r *CatalogRepository) Product(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	row, err := r.q.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("q.GetProduct: %w", mapNoRows(err))
	}

	price, err := mapPrice(row.PriceAmount, row.PriceCurrency)
	if err != nil {
		return domain.Product{}, fmt.Errorf("mapPrice: %w", err)
	}

	return domain.Product{
		ID:       row.ID,
		Name:     row.Name,
		Category: row.Category,
		Price:    price,
		Active:   row.Active,
	}, nil
}

func (r *CatalogRepository) Course(ctx context.Context, courseID uuid.UUID) (domain.Course, error) {
	course, err := withTx(ctx, r.dbtx, func(q *db.Queries) (domain.Course, error) {
		row, err := q.GetCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, fmt.Errorf("q.GetCourse: %w", mapNoRows(err))
		}

		lessons, err := q.GetCourseLessons(ctx, courseID)
		if err != nil {
			return domain.Course{}, fmt.Errorf("q.GetCourseLessons: %w", err)
		}

		return mapDBCourseToDomain(row, lessons)
	})
	if err != nil {
		return domain.Course{}, fmt.Errorf("withTx: %w", err)
	}

	return course, nil
}

// Import upserts products and courses, replacing the lessons of every imported course.
func (r *CatalogRepository) Import(ctx context.Context, products []domain.Product, courses []domain.Course) error {
	return withTxExec(ctx, r.dbtx, func(q *db.Queries) error {
		for _, p := range products {
			if err := q.UpsertProduct(ctx, db.UpsertProductParams{
				ID:            p.ID,
				Name:          p.Name,
				Category:      p.Category,
				PriceAmount:   p.Price.Amount,
				PriceCurrency: p.Price.Currency.String(),
				Active:        p.Active,
			}); err != nil {
				return fmt.Errorf("q.UpsertProduct[%s]: %w", p.ID, err)
			}
		}

		for _, c := range courses {
			if err := q.UpsertCourse(ctx, db.UpsertCourseParams{
				ID:            c.ID,
				Title:         c.Title,
				Description:   c.Description,
				Level:         c.Level,
				DurationHours: int32(c.DurationHours),
				PriceAmount:   c.Price.Amount,
				PriceCurrency: c.Price.Currency.String(),
				Active:        c.Active,
			}); err != nil {
				return fmt.Errorf("q.UpsertCourse[%s]: %w", c.ID, err)
			}

			if err := q.DeleteCourseLessons(ctx, c.ID); err != nil {
				return fmt.Errorf("q.DeleteCourseLessons[%s]: %w", c.ID, err)
			}

			for _, l := range c.Lessons {
				if err := q.InsertCourseLesson(ctx, db.InsertCourseLessonParams{
					ID:              l.ID,
					CourseID:        c.ID,
					Title:           l.Title,
					Position:        int32(l.Position),
					DurationMinutes: int32(l.DurationMinutes),
					Content:         l.Content,
				}); err != nil {
					return fmt.Errorf("q.InsertCourseLesson[%s]: %w", l.ID, err)
				}
			}
		}

		return nil
	})
}

func mapDBCourseToDomain(row db.Course, lessons []db.CourseLesson) (domain.Course, error) {
	price, err := mapPrice(row.PriceAmount, row.PriceCurrency)
	if err != nil {
		return domain.Course{}, fmt.Errorf("mapPrice: %w", err)
	}

	course := domain.Course{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Level:         row.Level,
		DurationHours: int(row.DurationHours),
		Price:         price,
		Active:        row.Active,
	}

	for _, l := range lessons {
		course.Lessons = append(course.Lessons, domain.Lesson{
			ID:              l.ID,
			Title:           l.Title,
			Position:        int(l.Position),
			DurationMinutes: int(l.DurationMinutes),
			Content:         l.Content,
		})
	}

	return course, nil
}

func mapPrice(amount decimal.Decimal, currencyCode string) (domain.Money, error) {
	parsedCurrency, err := currency.ParseISO(currencyCode)
	if err != nil {
		return domain.Money{}, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return domain.NewMoney(amount, parsedCurrency), nil
}
