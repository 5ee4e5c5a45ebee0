package snackhub_test

import (
	"sync"

	"snackbox/backend/internal/models"
)

// MockClient is an in-memory Client; tests read delivered events from Recv.
type MockClient struct {
	connID string
	Recv   chan models.Event

	mu       sync.RWMutex
	userID   uint
	username string

	closeOnce sync.Once
	closed    chan struct{}
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID: connID,
		Recv:   make(chan models.Event, 16),
		closed: make(chan struct{}),
	}
}

func (c *MockClient) ConnID() string { return c.connID }

func (c *MockClient) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *MockClient) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *MockClient) Bind(userID uint, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

func (c *MockClient) SendChannel() chan<- models.Event { return c.Recv }

func (c *MockClient) Run() {
	// Not needed for testing.
}

func (c *MockClient) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
