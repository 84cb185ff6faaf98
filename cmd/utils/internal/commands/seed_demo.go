package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/orderboard/cmd/utils/internal/seeding"
	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

// OrdersClient is the subset of apt.ServiceClient the commands use.
type OrdersClient interface {
	List(ctx context.Context, resource string) (*apt.SuccessResponse, error)
	Create(ctx context.Context, resource string, body interface{}) (*apt.SuccessResponse, error)
	Request(ctx context.Context, method, path string, body interface{}) (*apt.SuccessResponse, error)
}

type placedOrder struct {
	ID    string `json:"id"`
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// SeedDemo places the demo orders through the orders service and drives each
// one to its target state. It does nothing when the service already holds
// orders, unless force is set.
func SeedDemo(ctx context.Context, client OrdersClient, force bool, logger apt.Logger) error {
	logger.Info("Starting demo seeding process...")

	if !force {
		resp, err := client.List(ctx, "orders")
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		var existing []json.RawMessage
		if err := decodeData(resp, &existing); err != nil {
			return fmt.Errorf("decode orders: %w", err)
		}
		if len(existing) > 0 {
			logger.Info("orders already present, skipping demo seeds", "orders", len(existing))
			return nil
		}
	}

	for _, demo := range seeding.DemoOrders() {
		ref := demo.TableRef
		if ref == "" {
			ref = demo.CustomerRef
		}

		resp, err := client.Create(ctx, "orders", demo)
		if err != nil {
			return fmt.Errorf("place demo order for %s: %w", ref, err)
		}

		var placed placedOrder
		if err := decodeData(resp, &placed); err != nil {
			return fmt.Errorf("decode demo order for %s: %w", ref, err)
		}

		if demo.ItemState != itemstatus.Statuses.Submitted {
			for _, it := range placed.Items {
				path := fmt.Sprintf("/orders/%s/items/%s/status", url.PathEscape(placed.ID), url.PathEscape(it.ID))
				body := map[string]itemstatus.Status{"stato": demo.ItemState}
				if _, err := client.Request(ctx, "PATCH", path, body); err != nil {
					return fmt.Errorf("advance demo item on %s: %w", ref, err)
				}
			}
		}

		if demo.Stato != orderstatus.Statuses.Ordered {
			path := fmt.Sprintf("/orders/%s/status", url.PathEscape(placed.ID))
			body := map[string]orderstatus.Status{"stato": demo.Stato}
			if _, err := client.Request(ctx, "PATCH", path, body); err != nil {
				return fmt.Errorf("advance demo order for %s: %w", ref, err)
			}
		}

		logger.Debug("demo order placed", "ref", ref, "id", placed.ID, "stato", demo.Stato.Code())
	}

	return nil
}

// decodeData re-decodes the untyped data member of an apt envelope.
func decodeData(resp *apt.SuccessResponse, target any) error {
	if resp == nil {
		return fmt.Errorf("empty response")
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
