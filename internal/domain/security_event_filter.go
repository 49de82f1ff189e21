package domain

import (
	"errors"
	"fmt"
	"time"
)

// SecurityEventFilter has AND semantics across fields, OR semantics within each field slice
type SecurityEventFilter struct {
	Kinds      []SecurityEventKind
	Severities []Severity
	CreatedAt  *TimeRange
	Limit      int
}

const MaxSecurityEventLimit = 1000

func (f SecurityEventFilter) Validate() error {
	if f.Limit < 0 {
		return errors.New("limit is negative")
	}

	if f.Limit > MaxSecurityEventLimit {
		return fmt.Errorf("limit exceeds %d", MaxSecurityEventLimit)
	}

	if f.CreatedAt != nil {
		if err := f.CreatedAt.Validate(); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
	}

	return nil
}

type TimeRange struct {
	Before *time.Time
	After  *time.Time
}

func (t TimeRange) Validate() error {
	if t.Before == nil && t.After == nil {
		return errors.New("both Before and After are nil")
	}

	if t.Before != nil && t.After != nil {
		if t.Before.Before(*t.After) {
			return fmt.Errorf("before is before After")
		}
	}

	return nil
}

func (t TimeRange) Contains(ts time.Time) bool {
	if t.After != nil && !ts.After(*t.After) {
		return false
	}
	if t.Before != nil && !ts.Before(*t.Before) {
		return false
	}
	return true
}
