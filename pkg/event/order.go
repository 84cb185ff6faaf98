package event

import (
	"encoding/json"
	"time"
)

const (
	OrdersTopic                 = "orders.events"
	EventOrderCreated           = "order.created"
	EventOrderItemAdded         = "order.item.added"
	EventOrderStatusChanged     = "order.status_changed"
	EventOrderItemStatusChanged = "order.item.status_changed"
	EventOrderCorrected         = "order.corrected"
)

// OrderEvent is published on every order change. It carries the full order
// so consumers can rebuild their view without querying the order service.
type OrderEvent struct {
	EventType      string        `json:"event_type"`
	OccurredAt     time.Time     `json:"occurred_at"`
	OrderID        string        `json:"order_id"`
	OrderItemID    string        `json:"order_item_id,omitempty"`
	PreviousStatus string        `json:"previous_status,omitempty"`
	NewStatus      string        `json:"new_status,omitempty"`
	Order          OrderSnapshot `json:"order"`
}

// OrderSnapshot is the wire form of an order. States travel as plain strings
// and are validated by the receiver.
type OrderSnapshot struct {
	ID              string              `json:"id"`
	TableRef        string              `json:"table_ref,omitempty"`
	CustomerRef     string              `json:"customer_ref,omitempty"`
	WaiterRef       string              `json:"waiter_ref,omitempty"`
	Stato           string              `json:"stato"`
	HasKitchenItems bool                `json:"has_kitchen_items"`
	Total           string              `json:"total"`
	Note            string              `json:"note,omitempty"`
	Items           []OrderItemSnapshot `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderItemSnapshot struct {
	ID            string          `json:"id"`
	ProductName   string          `json:"product_name"`
	ProductID     *int64          `json:"product_id,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     string          `json:"unit_price"`
	Stato         string          `json:"stato"`
	Station       string          `json:"postazione"`
	Note          string          `json:"note,omitempty"`
	Glasses       *int            `json:"glasses,omitempty"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
