package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

const orderDemoSeedApplication = "orderboard_demo"

// ApplyDemoSeeds places a handful of orders spread across every view tab.
func ApplyDemoSeeds(ctx context.Context, svc *Service, tracker seed.Tracker, logger apt.Logger) error {
	if tracker == nil {
		return errors.New("seed tracker is required for demo seeding")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	logger.Info("applying demo order seeds")
	if err := seed.Apply(ctx, tracker, buildDemoOrderSeeds(svc), orderDemoSeedApplication); err != nil {
		return err
	}
	logger.Info("demo order seeds applied")
	return nil
}

func buildDemoOrderSeeds(svc *Service) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-10-01_demo_orders_v1",
			Description: "Create demo orders covering every station view",
			Run: func(ctx context.Context) error {
				return seedDemoOrders(ctx, svc)
			},
		},
	}
}

type demoOrder struct {
	table     string
	waiter    string
	items     []ItemRequest
	itemState itemstatus.Status
	stato     orderstatus.Status
}

func demoItem(name, price, postazione string, qty int) ItemRequest {
	return ItemRequest{
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		Station:     postazione,
	}
}

func seedDemoOrders(ctx context.Context, svc *Service) error {
	s := orderstatus.Statuses
	is := itemstatus.Statuses

	orders := []demoOrder{
		{
			table:  "T1",
			waiter: "marco",
			items: []ItemRequest{
				demoItem("Margherita", "7.50", "CUCINA", 2),
				demoItem("Spritz", "6.00", "BAR", 2),
			},
			itemState: is.Submitted,
			stato:     s.Ordered,
		},
		{
			table:     "T4",
			waiter:    "giulia",
			items:     []ItemRequest{demoItem("Carbonara", "11.00", "CUCINA", 1)},
			itemState: is.Working,
			stato:     s.Preparing,
		},
		{
			table:  "T7",
			waiter: "marco",
			items: []ItemRequest{
				demoItem("Tiramisù", "5.50", "CUCINA", 2),
				demoItem("Caffè", "1.20", "BAR", 2),
			},
			itemState: is.Ready,
			stato:     s.Preparing,
		},
		{
			table:     "T2",
			waiter:    "giulia",
			items:     []ItemRequest{demoItem("Negroni", "8.00", "BAR", 3)},
			itemState: is.Ready,
			stato:     s.Ready,
		},
		{
			table:     "T9",
			waiter:    "marco",
			items:     []ItemRequest{demoItem("Branzino", "18.00", "CUCINA", 1)},
			itemState: is.Submitted,
			stato:     s.Exhausted,
		},
		{
			table:     "T3",
			waiter:    "giulia",
			items:     []ItemRequest{demoItem("Acqua", "2.00", "ALTRO", 1)},
			itemState: is.Delivered,
			stato:     s.Delivered,
		},
	}

	for _, d := range orders {
		o, err := svc.Place(ctx, PlaceOrderRequest{TableRef: d.table, WaiterRef: d.waiter, Items: d.items})
		if err != nil {
			return fmt.Errorf("place demo order for %s: %w", d.table, err)
		}

		for _, it := range o.Items {
			if _, err := svc.ChangeItemStatus(ctx, o.ID, it.ID, d.itemState); err != nil {
				return fmt.Errorf("advance demo item %s: %w", it.ProductName, err)
			}
		}

		if _, err := svc.ChangeStatus(ctx, o.ID, d.stato); err != nil {
			return fmt.Errorf("advance demo order for %s: %w", d.table, err)
		}
	}

	return nil
}

// DemoSeedingFunc returns a lifecycle start hook that seeds in the background.
func DemoSeedingFunc(seedCtx context.Context, svc *Service, tracker seed.Tracker, logger apt.Logger) func(ctx context.Context) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return func(ctx context.Context) error {
		logger.Info("starting demo order seeding in background")
		go func() {
			if err := ApplyDemoSeeds(seedCtx, svc, tracker, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("demo order seeds failed: %v", err)
			}
		}()
		return nil
	}
}
