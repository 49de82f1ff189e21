package domain

import "github.com/google/uuid"

// Event is a post-commit fact published by the reconciler.
type Event interface {
	EventType() string
}

type OrderPaid struct {
	Order Order
}

func (OrderPaid) EventType() string { return "order.paid" }

type CourseAccessIssued struct {
	Order       Order
	CourseID    uuid.UUID
	CourseTitle string
	Email       string
	Link        string
}

func (CourseAccessIssued) EventType() string { return "course.access_issued" }
