package order

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

// MockPublisher records published messages.
type MockPublisher struct {
	mu          sync.Mutex
	Messages    [][]byte
	Topics      []string
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics = append(m.Topics, topic)
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// MockSubscriber captures the handler registered for each topic.
type MockSubscriber struct {
	Handlers      map[string]events.HandlerFunc
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{Handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.Handlers[topic] = handler
	return nil
}

// MockStreamConsumer replays canned messages.
type MockStreamConsumer struct {
	Messages  []events.StreamMessage
	FetchFunc func(ctx context.Context, limit int) ([]events.StreamMessage, error)
	Fetches   int
}

func (m *MockStreamConsumer) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	m.Fetches++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, limit)
	}
	return m.Messages, nil
}

func (m *MockStreamConsumer) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	return nil
}

// MockOrderRepo is an in-memory OrderRepo.
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*Order
	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, order *Order) error
	ListErr    error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MockOrderRepo) List(ctx context.Context) ([]*Order, error) {
	return m.filter(func(*Order) bool { return true })
}

func (m *MockOrderRepo) ListByStatus(ctx context.Context, status orderstatus.Status) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return o.Status == status })
}

func (m *MockOrderRepo) ListSince(ctx context.Context, since time.Time) ([]*Order, error) {
	return m.filter(func(o *Order) bool {
		return o.Status != orderstatus.Statuses.Delivered || !o.UpdatedAt.Before(since)
	})
}

func (m *MockOrderRepo) filter(keep func(*Order) bool) ([]*Order, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if keep(o) {
			result = append(result, o.Clone())
		}
	}
	sortByCreation(result)
	return result, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return ErrNotFound
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

// MockSeedTracker remembers which seeds ran.
type MockSeedTracker struct {
	mu  sync.Mutex
	Ran map[string]seed.Record
}

func NewMockSeedTracker() *MockSeedTracker {
	return &MockSeedTracker{Ran: make(map[string]seed.Record)}
}

func (m *MockSeedTracker) HasRun(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Ran[id]
	return ok, nil
}

func (m *MockSeedTracker) MarkRun(ctx context.Context, record seed.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ran[record.ID] = record
	return nil
}
