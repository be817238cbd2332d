// Package delivery holds the entry points that drive the use cases.
package delivery

import "context"

// Delivery is a long-running entry point such as an HTTP server or a scheduler.
// Serve blocks until ctx ends or the delivery fails.
type Delivery interface {
	Serve(ctx context.Context) error
}
