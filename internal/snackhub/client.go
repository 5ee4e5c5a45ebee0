package snackhub

import "snackbox/backend/internal/models"

// Client is one live realtime connection. It abstracts the transport so the
// hub can manage websocket connections and test doubles uniformly.
type Client interface {
	// ConnID identifies the connection itself, assigned at upgrade time.
	ConnID() string
	// UserID returns the bound user identity, or 0 before authentication.
	UserID() uint
	// Username returns the bound display name, empty before authentication.
	Username() string
	// Bind attaches a user identity to the connection.
	Bind(userID uint, username string)

	// SendChannel is where the hub queues outbound events for this
	// connection's write pump. It must stay open for the lifetime of the
	// value, even after Close: sends race with eviction, so implementations
	// accept (and discard) events queued to a closed connection.
	SendChannel() chan<- models.Event

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the pumps and the underlying transport. Idempotent
	// and safe to call concurrently with sends.
	Close()
}
