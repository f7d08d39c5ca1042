package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
)

// MockOracle implements the Oracle interface for testing purposes. It records
// every dispatched request and allows customization by setting a function
// implementation.
type MockOracle struct {
	mu         sync.Mutex
	nextID     int
	dispatched map[string][]crypto.CiphertextHandle

	submitFunc func(ctx context.Context, handles []crypto.CiphertextHandle) (string, error)
}

// NewMockOracle creates a mock oracle that assigns sequential request ids.
func NewMockOracle() *MockOracle {
	m := &MockOracle{
		dispatched: make(map[string][]crypto.CiphertextHandle),
	}
	m.submitFunc = func(ctx context.Context, handles []crypto.CiphertextHandle) (string, error) {
		m.nextID++
		id := fmt.Sprintf("mock-request-%d", m.nextID)
		m.dispatched[id] = handles
		return id, nil
	}
	return m
}

// Submit implements the Oracle interface.
func (m *MockOracle) Submit(ctx context.Context, handles []crypto.CiphertextHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitFunc(ctx, handles)
}

// SetSubmitFunc allows customization of the Submit implementation.
func (m *MockOracle) SetSubmitFunc(fn func(ctx context.Context, handles []crypto.CiphertextHandle) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitFunc = fn
}

// Dispatched returns the handles sent for a request id.
func (m *MockOracle) Dispatched(requestID string) []crypto.CiphertextHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatched[requestID]
}
