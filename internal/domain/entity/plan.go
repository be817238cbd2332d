// Package entity contains the core business objects of planhub.
// Entities are plain values: repositories fill them completely and nothing is loaded lazily.
package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Bounds of the plan columns. Price is stored as a 32-bit INT, and a
// validity of at most a century keeps every end date inside DATETIME range.
const (
	MaxPrice        = math.MaxInt32
	MaxValidityDays = 36500
)

// Plan is a purchasable subscription tier.
type Plan struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int       `json:"price"`    // Minor currency unit, never negative.
	Validity    int       `json:"validity"` // Days the plan stays active once purchased.
}

// WindowFrom returns the active window of a purchase starting at start.
func (p *Plan) WindowFrom(start time.Time) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, p.Validity)
}
