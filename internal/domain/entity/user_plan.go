package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserPlan records one purchase of a plan by a user. Rows are append-only;
// only Active ever changes after creation.
type UserPlan struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PlanID    uuid.UUID `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"` // Exclusive.
	Active    bool      `json:"active"`
}

// Covers reports whether t falls inside [StartDate, EndDate).
func (up *UserPlan) Covers(t time.Time) bool {
	return !t.Before(up.StartDate) && t.Before(up.EndDate)
}

// IsCurrent reports whether the purchase is active and its window covers now.
func (up *UserPlan) IsCurrent(now time.Time) bool {
	return up.Active && up.Covers(now)
}

// IsDue reports whether an active row has reached its end date at now.
func (up *UserPlan) IsDue(now time.Time) bool {
	return up.Active && !now.Before(up.EndDate)
}
