package entity

import (
	"github.com/google/uuid"
)

// User is an account of the user service. HashedPassword only ever holds a
// one-way hash and is never encoded.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	MobileNumber   string     `json:"mobile_number"`
	PostalAddress  string     `json:"postal_address"`
	ActivePlanID   *uuid.UUID `json:"active_plan_id,omitempty"` // Cached plan of the current UserPlan, nil when none.
}

// HasActivePlan reports whether the cached active plan equals planID.
func (u *User) HasActivePlan(planID uuid.UUID) bool {
	return u.ActivePlanID != nil && *u.ActivePlanID == planID
}
