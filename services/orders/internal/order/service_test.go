package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/event"
	"github.com/appetiteclub/orderboard/services/orders/internal/lifecycle"
)

func lastEvent(t *testing.T, pub *MockPublisher) event.OrderEvent {
	t.Helper()
	if pub.Count() == 0 {
		t.Fatal("no event published")
	}
	var evt event.OrderEvent
	if err := json.Unmarshal(pub.Messages[pub.Count()-1], &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if pub.Topics[pub.Count()-1] != event.OrdersTopic {
		t.Errorf("topic = %q, want %q", pub.Topics[pub.Count()-1], event.OrdersTopic)
	}
	return evt
}

func TestServicePlace(t *testing.T) {
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewService(repo, nil, pub, nil)

	o, err := svc.Place(context.Background(), PlaceOrderRequest{
		TableRef: "T2",
		Items: []ItemRequest{
			{ProductName: "Negroni", Quantity: 2, UnitPrice: decimal.RequireFromString("8.00"), Station: "BAR"},
		},
	})
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	if o.HasKitchenItems {
		t.Error("bar-only order should not have kitchen items")
	}
	if _, err := repo.Get(context.Background(), o.ID); err != nil {
		t.Errorf("order not stored: %v", err)
	}
	if svc.Cache().Get(o.ID) == nil {
		t.Error("order not cached")
	}

	evt := lastEvent(t, pub)
	if evt.EventType != event.EventOrderCreated || evt.OrderID != o.ID.String() {
		t.Errorf("event = %+v", evt)
	}
	if evt.Order.Stato != "ORDINATO" || evt.Order.Total != "16" {
		t.Errorf("snapshot = %+v", evt.Order)
	}
}

func TestServicePlaceValidation(t *testing.T) {
	pub := NewMockPublisher()
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)

	_, err := svc.Place(context.Background(), PlaceOrderRequest{TableRef: "T2"})

	var verrs apt.ValidationErrors
	if !errors.As(err, &verrs) || !verrs.HasErrors() {
		t.Fatalf("Place() error = %v, want validation errors", err)
	}
	if pub.Count() != 0 {
		t.Error("rejected order should not be published")
	}
	if svc.Cache().Count() != 0 {
		t.Error("rejected order should not be cached")
	}
}

func TestServicePlaceRepoError(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.CreateFunc = func(context.Context, *Order) error { return errors.New("disk full") }
	pub := NewMockPublisher()
	svc := NewService(repo, nil, pub, nil)

	_, err := svc.Place(context.Background(), PlaceOrderRequest{
		TableRef: "T2",
		Items:    []ItemRequest{{ProductName: "Acqua", Quantity: 1, UnitPrice: decimal.NewFromInt(2)}},
	})
	if err == nil {
		t.Fatal("Place() should fail when the store fails")
	}
	if pub.Count() != 0 {
		t.Error("nothing should be published when the store fails")
	}
}

func TestServiceChangeStatus(t *testing.T) {
	tests := []struct {
		name       string
		steps      []orderstatus.Status
		wantErr    error
		wantEvents int
		wantStato  orderstatus.Status
	}{
		{
			name:       "forward",
			steps:      []orderstatus.Status{orderstatus.Statuses.Preparing, orderstatus.Statuses.Ready, orderstatus.Statuses.Delivered},
			wantEvents: 4,
			wantStato:  orderstatus.Statuses.Delivered,
		},
		{
			name:       "skipAhead",
			steps:      []orderstatus.Status{orderstatus.Statuses.Ready},
			wantEvents: 2,
			wantStato:  orderstatus.Statuses.Ready,
		},
		{
			name:       "idempotent",
			steps:      []orderstatus.Status{orderstatus.Statuses.Preparing, orderstatus.Statuses.Preparing},
			wantEvents: 2,
			wantStato:  orderstatus.Statuses.Preparing,
		},
		{
			name:       "regression",
			steps:      []orderstatus.Status{orderstatus.Statuses.Ready, orderstatus.Statuses.Preparing},
			wantErr:    lifecycle.ErrInvalidTransition,
			wantEvents: 2,
			wantStato:  orderstatus.Statuses.Ready,
		},
		{
			name:       "afterDelivery",
			steps:      []orderstatus.Status{orderstatus.Statuses.Delivered, orderstatus.Statuses.Ready},
			wantErr:    lifecycle.ErrInvalidTransition,
			wantEvents: 2,
			wantStato:  orderstatus.Statuses.Delivered,
		},
		{
			name:       "leaveExhausted",
			steps:      []orderstatus.Status{orderstatus.Statuses.Exhausted, orderstatus.Statuses.Preparing},
			wantErr:    lifecycle.ErrCorrectionRequired,
			wantEvents: 2,
			wantStato:  orderstatus.Statuses.Exhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockOrderRepo()
			pub := NewMockPublisher()
			svc := NewService(repo, nil, pub, nil)
			o := placeTestOrder(t, svc)

			var err error
			for _, s := range tt.steps {
				if _, err = svc.ChangeStatus(context.Background(), o.ID, s); err != nil {
					break
				}
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ChangeStatus() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ChangeStatus() error = %v", err)
			}

			if pub.Count() != tt.wantEvents {
				t.Errorf("published %d events, want %d", pub.Count(), tt.wantEvents)
			}

			stored, _ := repo.Get(context.Background(), o.ID)
			if stored.Status != tt.wantStato {
				t.Errorf("stored stato = %v, want %v", stored.Status, tt.wantStato)
			}
			if cached := svc.Cache().Get(o.ID); cached.Status != tt.wantStato {
				t.Errorf("cached stato = %v, want %v", cached.Status, tt.wantStato)
			}
		})
	}
}

func TestServiceChangeStatusEvent(t *testing.T) {
	pub := NewMockPublisher()
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)
	o := placeTestOrder(t, svc)

	if _, err := svc.ChangeStatus(context.Background(), o.ID, orderstatus.Statuses.Preparing); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}

	evt := lastEvent(t, pub)
	if evt.EventType != event.EventOrderStatusChanged {
		t.Errorf("event_type = %q", evt.EventType)
	}
	if evt.PreviousStatus != "ORDINATO" || evt.NewStatus != "IN_PREPARAZIONE" {
		t.Errorf("transition = %s -> %s", evt.PreviousStatus, evt.NewStatus)
	}
	if evt.Order.Stato != "IN_PREPARAZIONE" {
		t.Errorf("snapshot stato = %q", evt.Order.Stato)
	}
}

func TestServiceChangeStatusSaveError(t *testing.T) {
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewService(repo, nil, pub, nil)
	o := placeTestOrder(t, svc)

	repo.SaveFunc = func(context.Context, *Order) error { return errors.New("write conflict") }

	if _, err := svc.ChangeStatus(context.Background(), o.ID, orderstatus.Statuses.Preparing); err == nil {
		t.Fatal("ChangeStatus() should fail when the store fails")
	}
	if cached := svc.Cache().Get(o.ID); cached.Status != orderstatus.Statuses.Ordered {
		t.Errorf("cache updated despite failed save: %v", cached.Status)
	}
	if pub.Count() != 1 {
		t.Errorf("published %d events, want only the creation", pub.Count())
	}
}

func TestServiceCorrect(t *testing.T) {
	pub := NewMockPublisher()
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)
	o := placeTestOrder(t, svc)
	ctx := context.Background()

	if _, err := svc.Correct(ctx, o.ID, orderstatus.Statuses.Ordered, "n/a"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("Correct() on open order error = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.ChangeStatus(ctx, o.ID, orderstatus.Statuses.Exhausted); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}

	got, err := svc.Correct(ctx, o.ID, orderstatus.Statuses.Ordered, "carbonara finita, cambiato in amatriciana")
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if got.Status != orderstatus.Statuses.Ordered {
		t.Errorf("stato = %v, want ORDINATO", got.Status)
	}

	evt := lastEvent(t, pub)
	if evt.EventType != event.EventOrderCorrected || evt.PreviousStatus != "ORDINATO_ESAURITO" {
		t.Errorf("event = %+v", evt)
	}
}

func TestServiceChangeItemStatus(t *testing.T) {
	pub := NewMockPublisher()
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)
	o := placeTestOrder(t, svc)
	ctx := context.Background()
	item := o.Items[0]

	got, err := svc.ChangeItemStatus(ctx, o.ID, item.ID, itemstatus.Statuses.Working)
	if err != nil {
		t.Fatalf("ChangeItemStatus() error = %v", err)
	}
	if got.Item(item.ID).Status != itemstatus.Statuses.Working {
		t.Errorf("item stato = %v", got.Item(item.ID).Status)
	}

	evt := lastEvent(t, pub)
	if evt.EventType != event.EventOrderItemStatusChanged || evt.OrderItemID != item.ID.String() {
		t.Errorf("event = %+v", evt)
	}

	before := pub.Count()
	if _, err := svc.ChangeItemStatus(ctx, o.ID, item.ID, itemstatus.Statuses.Working); err != nil {
		t.Fatalf("repeated ChangeItemStatus() error = %v", err)
	}
	if pub.Count() != before {
		t.Error("no-op item change should not publish")
	}

	if _, err := svc.ChangeItemStatus(ctx, o.ID, item.ID, itemstatus.Statuses.Submitted); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("backwards error = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.ChangeItemStatus(ctx, o.ID, uuid.New(), itemstatus.Statuses.Ready); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item error = %v, want ErrItemNotFound", err)
	}
	if _, err := svc.ChangeItemStatus(ctx, uuid.New(), item.ID, itemstatus.Statuses.Ready); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown order error = %v, want ErrNotFound", err)
	}
}

func TestServiceAddItems(t *testing.T) {
	pub := NewMockPublisher()
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)
	o := placeTestOrder(t, svc)

	got, err := svc.AddItems(context.Background(), o.ID, []ItemRequest{
		{ProductName: "Tiramisù", Quantity: 1, UnitPrice: decimal.RequireFromString("5.50"), Station: "CUCINA"},
	})
	if err != nil {
		t.Fatalf("AddItems() error = %v", err)
	}
	if len(got.Items) != 3 {
		t.Errorf("items = %d, want 3", len(got.Items))
	}

	evt := lastEvent(t, pub)
	if evt.EventType != event.EventOrderItemAdded || evt.OrderItemID != got.Items[2].ID.String() {
		t.Errorf("event = %+v", evt)
	}

	_, err = svc.AddItems(context.Background(), o.ID, []ItemRequest{{ProductName: "", Quantity: 0}})
	var verrs apt.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("AddItems() invalid item error = %v, want validation errors", err)
	}
}

func TestServiceGetAndList(t *testing.T) {
	repo := NewMockOrderRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	cached := placeTestOrder(t, svc)

	stored := newTestOrder(newTestItem("Acqua", "2.00", 1, station.Stations.Other))
	stored.Status = orderstatus.Statuses.Delivered
	if err := repo.Create(ctx, stored); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got, err := svc.Get(ctx, cached.ID); err != nil || got.ID != cached.ID {
		t.Errorf("Get(cached) = %v, %v", got, err)
	}
	if got, err := svc.Get(ctx, stored.ID); err != nil || got.ID != stored.ID {
		t.Errorf("Get(stored) = %v, %v", got, err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}

	all, err := svc.List(ctx, nil)
	if err != nil || len(all) != 2 {
		t.Errorf("List(nil) = %d orders, %v", len(all), err)
	}
	delivered := orderstatus.Statuses.Delivered
	done, err := svc.List(ctx, &delivered)
	if err != nil || len(done) != 1 {
		t.Errorf("List(CONSEGNATO) = %d orders, %v", len(done), err)
	}

	bar := station.Stations.Bar
	if got := svc.InFlight(&bar); len(got) != 1 {
		t.Errorf("InFlight(BAR) = %d orders, want 1", len(got))
	}
	if got := svc.InFlight(nil); len(got) != 1 {
		t.Errorf("InFlight(nil) = %d orders, want 1", len(got))
	}
}

func TestServicePublishFailureIsNotFatal(t *testing.T) {
	pub := NewMockPublisher()
	pub.PublishFunc = func(context.Context, string, []byte) error { return errors.New("nats: no responders") }
	svc := NewService(NewMockOrderRepo(), nil, pub, nil)

	o := placeTestOrder(t, svc)
	if _, err := svc.ChangeStatus(context.Background(), o.ID, orderstatus.Statuses.Preparing); err != nil {
		t.Errorf("ChangeStatus() error = %v, publish failures should only be logged", err)
	}
}
