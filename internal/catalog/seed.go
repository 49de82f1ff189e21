package catalog

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Currency string        `yaml:"currency"`
	Products []seedProduct `yaml:"products"`
	Courses  []seedCourse  `yaml:"courses"`
}

type seedProduct struct {
	ID       uuid.UUID `yaml:"id"`
	Name     string    `yaml:"name"`
	Category string    `yaml:"category"`
	Price    string    `yaml:"price"`
	Inactive bool      `yaml:"inactive"`
}

type seedCourse struct {
	ID            uuid.UUID    `yaml:"id"`
	Title         string       `yaml:"title"`
	Description   string       `yaml:"description"`
	Level         string       `yaml:"level"`
	DurationHours int          `yaml:"duration_hours"`
	Price         string       `yaml:"price"`
	Inactive      bool         `yaml:"inactive"`
	Lessons       []seedLesson `yaml:"lessons"`
}

type seedLesson struct {
	ID              uuid.UUID `yaml:"id"`
	Title           string    `yaml:"title"`
	DurationMinutes int       `yaml:"duration_minutes"`
	Content         string    `yaml:"content"`
}

// DefaultSeed returns the embedded seed catalog.
func DefaultSeed() ([]domain.Product, []domain.Course, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes a YAML catalog. Lesson positions follow their order in the file.
func ParseSeed(data []byte) ([]domain.Product, []domain.Course, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	unit, err := currency.ParseISO(f.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("currency[%s] is not valid: %w", f.Currency, err)
	}

	products := make([]domain.Product, 0, len(f.Products))
	for _, p := range f.Products {
		if p.ID == uuid.Nil {
			return nil, nil, fmt.Errorf("product %q: id is empty", p.Name)
		}

		price, err := domain.ParseMoney(p.Price, unit)
		if err != nil {
			return nil, nil, fmt.Errorf("product[%s]: %w", p.ID, err)
		}

		products = append(products, domain.Product{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Price:    price,
			Active:   !p.Inactive,
		})
	}

	courses := make([]domain.Course, 0, len(f.Courses))
	for _, c := range f.Courses {
		if c.ID == uuid.Nil {
			return nil, nil, fmt.Errorf("course %q: id is empty", c.Title)
		}

		price, err := domain.ParseMoney(c.Price, unit)
		if err != nil {
			return nil, nil, fmt.Errorf("course[%s]: %w", c.ID, err)
		}

		course := domain.Course{
			ID:            c.ID,
			Title:         c.Title,
			Description:   c.Description,
			Level:         c.Level,
			DurationHours: c.DurationHours,
			Price:         price,
			Active:        !c.Inactive,
		}

		for i, l := range c.Lessons {
			course.Lessons = append(course.Lessons, domain.Lesson{
				ID:              l.ID,
				Title:           l.Title,
				Position:        i + 1,
				DurationMinutes: l.DurationMinutes,
				Content:         l.Content,
			})
		}

		courses = append(courses, course)
	}

	return products, courses, nil
}
