package viewfilter

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

// testOrder scans its items on every evaluation.
type testOrder struct {
	id    string
	stato orderstatus.Status
	items []itemstatus.Status
}

func (o testOrder) OrderStatus() orderstatus.Status {
	return o.stato
}

func (o testOrder) ItemStatuses() []itemstatus.Status {
	return o.items
}

// MockMetrics records counter increments.
type MockMetrics struct {
	mu       sync.Mutex
	Counters map[string]float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Counters: make(map[string]float64)}
}

func (m *MockMetrics) Counter(_ context.Context, name string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[name] += value
}

func (m *MockMetrics) ObserveHTTPRequest(string, string, int, time.Duration) {}
