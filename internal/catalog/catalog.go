// Package catalog selects the source of authoritative prices.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
)

type Kind string

const (
	KindStore Kind = "store"
	KindSeed  Kind = "seed"
)

func ToKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindStore, KindSeed:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid catalog source %q", s)
}

// Select returns the catalog source for kind. The choice is made once at startup;
// there is no fallback from one source to the other.
func Select(kind Kind, durable port.CatalogSource) (port.CatalogSource, error) {
	switch kind {
	case KindStore:
		if durable == nil {
			return nil, errors.New("durable catalog is nil")
		}
		return durable, nil
	case KindSeed:
		products, courses, err := DefaultSeed()
		if err != nil {
			return nil, fmt.Errorf("DefaultSeed: %w", err)
		}
		return NewStatic(products, courses), nil
	}
	return nil, fmt.Errorf("invalid catalog source %q", kind)
}

// Static is an immutable in-memory catalog.
type Static struct {
	products map[uuid.UUID]domain.Product
	courses  map[uuid.UUID]domain.Course
}

func NewStatic(products []domain.Product, courses []domain.Course) *Static {
	s := &Static{
		products: make(map[uuid.UUID]domain.Product, len(products)),
		courses:  make(map[uuid.UUID]domain.Course, len(courses)),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, c := range courses {
		s.courses[c.ID] = c
	}
	return s
}

func (s *Static) Product(_ context.Context, productID uuid.UUID) (domain.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("product[%s]: %w", productID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Static) Course(_ context.Context, courseID uuid.UUID) (domain.Course, error) {
	c, ok := s.courses[courseID]
	if !ok {
		return domain.Course{}, fmt.Errorf("course[%s]: %w", courseID, domain.ErrNotFound)
	}
	return c, nil
}
