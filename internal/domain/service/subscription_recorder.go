package service

// SubscriptionRecorder counts subscription outcomes for monitoring.
type SubscriptionRecorder interface {
	PurchaseCompleted()
	PlansExpired(n int)
	EventPublishFailed(eventType string)
}
