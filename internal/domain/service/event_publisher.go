package service

import (
	"context"
	"time"
)

// Subscription event types.
const (
	EventPlanPurchased = "plan.purchased"
	EventPlanExpired   = "plan.expired"
)

// SubscriptionEvent announces a change of a user's active plan to other services.
type SubscriptionEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	UserPlanID string    `json:"user_plan_id"`
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishSubscriptionEvent publishes a subscription event
	PublishSubscriptionEvent(ctx context.Context, event *SubscriptionEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
