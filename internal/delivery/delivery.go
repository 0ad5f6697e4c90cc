// Package delivery defines the contract every inbound adapter satisfies.
package delivery

import "context"

// Delivery is a long-running inbound adapter (HTTP server, queue consumer).
// Serve blocks until the adapter stops or ctx is cancelled.
type Delivery interface {
	Serve(ctx context.Context) error
}
