package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/event"
)

type PlaceOrderRequest struct {
	TableRef    string        `json:"table_ref"`
	CustomerRef string        `json:"customer_ref"`
	WaiterRef   string        `json:"waiter_ref"`
	Note        string        `json:"note"`
	Items       []ItemRequest `json:"items"`
}

type ItemRequest struct {
	ProductName   string          `json:"product_name"`
	ProductID     *int64          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Station       string          `json:"postazione"`
	Note          string          `json:"note"`
	Glasses       *int            `json:"glasses"`
	Configuration json.RawMessage `json:"configuration"`
}

// Service applies order mutations. Writes are serialized so concurrent
// requests from waiters and stations cannot lose each other's updates.
type Service struct {
	repo      OrderRepo
	cache     *OrderStateCache
	publisher events.Publisher
	logger    apt.Logger

	mu sync.Mutex
}

func NewService(repo OrderRepo, cache *OrderStateCache, publisher events.Publisher, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cache == nil {
		cache = NewOrderStateCache(nil, repo, DefaultWindow, logger)
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Cache() *OrderStateCache {
	return s.cache
}

// Place creates an order together with its first items.
func (s *Service) Place(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	o := NewOrder()
	o.TableRef = req.TableRef
	o.CustomerRef = req.CustomerRef
	o.WaiterRef = req.WaiterRef
	o.Note = req.Note

	items, verrs := buildItems(req.Items)
	o.Items = items
	o.BeforeCreate()

	verrs = append(o.Validate(), verrs...)
	if verrs.HasErrors() {
		return nil, verrs
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	s.cache.Set(o)
	s.publish(ctx, o, event.OrderEvent{
		EventType: event.EventOrderCreated,
		NewStatus: o.Status.Code(),
	})
	return o, nil
}

// AddItems appends items to an open order.
func (s *Service) AddItems(ctx context.Context, id uuid.UUID, reqs []ItemRequest) (*Order, error) {
	items, verrs := buildItems(reqs)
	if len(reqs) == 0 {
		verrs = append(verrs, apt.ValidationError{Field: "items", Code: "required", Message: "at least one item is required"})
	}
	for i, it := range items {
		it.BeforeCreate()
		verrs = append(verrs, it.Validate(fmt.Sprintf("items[%d]", i))...)
	}
	if verrs.HasErrors() {
		return nil, verrs
	}

	return s.mutate(ctx, id, func(o *Order) (event.OrderEvent, error) {
		if err := o.AddItems(items...); err != nil {
			return event.OrderEvent{}, err
		}
		evt := event.OrderEvent{EventType: event.EventOrderItemAdded}
		if len(items) == 1 {
			evt.OrderItemID = items[0].ID.String()
		}
		return evt, nil
	})
}

// ChangeStatus moves an order along the pipeline.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to orderstatus.Status) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order) (event.OrderEvent, error) {
		from, err := o.TransitionTo(to)
		if err != nil {
			return event.OrderEvent{}, err
		}
		if from == to {
			return event.OrderEvent{}, errUnchanged
		}
		return event.OrderEvent{
			EventType:      event.EventOrderStatusChanged,
			PreviousStatus: from.Code(),
			NewStatus:      to.Code(),
		}, nil
	})
}

// Correct takes an exhausted order back into the pipeline.
func (s *Service) Correct(ctx context.Context, id uuid.UUID, to orderstatus.Status, note string) (*Order, error) {
	return s.mutate(ctx, id, func(o *Order) (event.OrderEvent, error) {
		from, err := o.Correct(to, note)
		if err != nil {
			return event.OrderEvent{}, err
		}
		return event.OrderEvent{
			EventType:      event.EventOrderCorrected,
			PreviousStatus: from.Code(),
			NewStatus:      to.Code(),
		}, nil
	})
}

// ChangeItemStatus moves one item of an order along the item pipeline.
func (s *Service) ChangeItemStatus(ctx context.Context, orderID, itemID uuid.UUID, to itemstatus.Status) (*Order, error) {
	return s.mutate(ctx, orderID, func(o *Order) (event.OrderEvent, error) {
		from, err := o.TransitionItem(itemID, to)
		if err != nil {
			return event.OrderEvent{}, err
		}
		if from == to {
			return event.OrderEvent{}, errUnchanged
		}
		return event.OrderEvent{
			EventType:      event.EventOrderItemStatusChanged,
			OrderItemID:    itemID.String(),
			PreviousStatus: from.Code(),
			NewStatus:      to.Code(),
		}, nil
	})
}

// Get returns an order from the cache or, failing that, from the store.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if o := s.cache.Get(id); o != nil {
		return o, nil
	}
	return s.repo.Get(ctx, id)
}

// List reads orders from the store, optionally restricted to one state.
func (s *Service) List(ctx context.Context, status *orderstatus.Status) ([]*Order, error) {
	if status != nil {
		return s.repo.ListByStatus(ctx, *status)
	}
	return s.repo.List(ctx)
}

// InFlight returns the cached orders in creation order, optionally only
// those with items for st.
func (s *Service) InFlight(st *station.Station) []*Order {
	if st != nil {
		return s.cache.GetByStation(*st)
	}
	return s.cache.Snapshot()
}

var errUnchanged = errors.New("unchanged")

func (s *Service) mutate(ctx context.Context, id uuid.UUID, apply func(*Order) (event.OrderEvent, error)) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	evt, err := apply(o)
	if errors.Is(err, errUnchanged) {
		return o, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("cannot save order: %w", err)
	}

	s.cache.Set(o)
	s.publish(ctx, o, evt)
	return o, nil
}

func (s *Service) publish(ctx context.Context, o *Order, evt event.OrderEvent) {
	if s.publisher == nil {
		return
	}

	evt.OccurredAt = time.Now().UTC()
	evt.OrderID = o.ID.String()
	evt.Order = ToSnapshot(o)

	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("cannot marshal order event", "error", err, "order_id", evt.OrderID)
		return
	}

	if err := s.publisher.Publish(ctx, event.OrdersTopic, data); err != nil {
		s.logger.Error("cannot publish order event", "error", err, "event_type", evt.EventType, "order_id", evt.OrderID)
		return
	}

	s.logger.Debug("order event published", "event_type", evt.EventType, "order_id", evt.OrderID)
}

func buildItems(reqs []ItemRequest) ([]*OrderItem, apt.ValidationErrors) {
	var verrs apt.ValidationErrors
	items := make([]*OrderItem, 0, len(reqs))

	for i, req := range reqs {
		it := NewOrderItem()
		it.ProductName = req.ProductName
		it.ProductID = req.ProductID
		it.Quantity = req.Quantity
		it.UnitPrice = req.UnitPrice
		it.Note = req.Note
		it.Glasses = req.Glasses
		it.Configuration = req.Configuration

		if req.Station != "" {
			st := station.ByName(req.Station)
			if st == nil {
				verrs = append(verrs, apt.ValidationError{
					Field:   fmt.Sprintf("items[%d].postazione", i),
					Code:    "invalid",
					Message: fmt.Sprintf("unknown station %q", req.Station),
				})
				continue
			}
			it.Station = *st
		}

		items = append(items, it)
	}

	return items, verrs
}
