package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums"
	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/event"
	"github.com/appetiteclub/orderboard/services/orders/internal/lifecycle"
)

// OrderEventSubscriber feeds order events published by peer instances into
// the local cache.
type OrderEventSubscriber struct {
	subscriber events.Subscriber
	cache      *OrderStateCache
	logger     apt.Logger
}

func NewOrderEventSubscriber(sub events.Subscriber, cache *OrderStateCache, logger apt.Logger) *OrderEventSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderEventSubscriber{
		subscriber: sub,
		cache:      cache,
		logger:     logger,
	}
}

func (s *OrderEventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting order event subscriber", "topic", event.OrdersTopic)
	if s.subscriber == nil {
		return fmt.Errorf("order event subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, event.OrdersTopic, s.handleEvent)
}

func (s *OrderEventSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	if err := s.cache.Apply(ctx, msg); err != nil {
		// Malformed payloads are never going to succeed, so they are not retried.
		s.logger.Info("discarding order event", "error", err)
	}
	return nil
}

// StationFeedSubscriber applies item progress reported by kitchen and bar
// displays.
type StationFeedSubscriber struct {
	subscriber events.Subscriber
	service    *Service
	logger     apt.Logger
}

func NewStationFeedSubscriber(sub events.Subscriber, service *Service, logger apt.Logger) *StationFeedSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &StationFeedSubscriber{
		subscriber: sub,
		service:    service,
		logger:     logger,
	}
}

func (s *StationFeedSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting station feed subscriber", "topic", event.StationItemsTopic)
	if s.subscriber == nil {
		return fmt.Errorf("station feed subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, event.StationItemsTopic, s.handleEvent)
}

func (s *StationFeedSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.StationItemEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid station item event", "error", err)
		return nil
	}

	if evt.EventType != event.EventStationItemStatusChanged {
		s.logger.Debug("unknown station event type", "event_type", evt.EventType)
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		s.logger.Info("invalid order_id in station event", "order_id", evt.OrderID)
		return nil
	}

	itemID, err := uuid.Parse(evt.OrderItemID)
	if err != nil {
		s.logger.Info("invalid order_item_id in station event", "order_item_id", evt.OrderItemID)
		return nil
	}

	to, err := itemstatus.Parse(evt.Stato)
	if err != nil {
		s.logger.Info("invalid item state in station event", "error", err)
		return nil
	}

	_, err = s.service.ChangeItemStatus(ctx, orderID, itemID, to)
	var stateErr *enums.InvalidStateError
	switch {
	case err == nil:
		s.logger.Debug("item status applied from station", "order_id", evt.OrderID, "order_item_id", evt.OrderItemID, "stato", evt.Stato, "postazione", evt.Station)
		return nil
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.As(err, &stateErr),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrItemNotFound):
		s.logger.Info("station item event rejected", "order_id", evt.OrderID, "order_item_id", evt.OrderItemID, "error", err)
		return nil
	default:
		return fmt.Errorf("cannot apply station item event: %w", err)
	}
}
