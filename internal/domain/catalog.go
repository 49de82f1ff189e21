package domain

import (
	"github.com/google/uuid"
)

type Product struct {
	ID       uuid.UUID
	Name     string
	Category string
	Price    Money
	Active   bool
}

type Course struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Level         string
	DurationHours int
	Price         Money
	Active        bool
	Lessons       []Lesson
}

type Lesson struct {
	ID              uuid.UUID
	Title           string
	Position        int
	DurationMinutes int
	Content         string
}
