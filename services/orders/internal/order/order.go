package order

import (
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/services/orders/internal/lifecycle"
)

// Order (ordinazione) aggregates the items a table or customer asked for.
// The order owns its items; they are stored and moved with it.
type Order struct {
	ID              uuid.UUID          `json:"id"`
	TableRef        string             `json:"table_ref,omitempty"`
	CustomerRef     string             `json:"customer_ref,omitempty"`
	WaiterRef       string             `json:"waiter_ref,omitempty"`
	Status          orderstatus.Status `json:"stato"`
	HasKitchenItems bool               `json:"has_kitchen_items"`
	Total           decimal.Decimal    `json:"total"`
	Note            string             `json:"note,omitempty"`
	Items           []*OrderItem       `json:"items"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func NewOrder() *Order {
	return &Order{
		ID:     apt.GenerateNewID(),
		Status: orderstatus.Statuses.Ordered,
		Total:  decimal.Zero,
		Items:  []*OrderItem{},
	}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.Status.IsZero() {
		o.Status = orderstatus.Statuses.Ordered
	}
	for _, it := range o.Items {
		it.OrderID = o.ID
		it.BeforeCreate()
	}
	o.Recalculate()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) OrderStatus() orderstatus.Status {
	return o.Status
}

func (o *Order) ItemStatuses() []itemstatus.Status {
	states := make([]itemstatus.Status, 0, len(o.Items))
	for _, it := range o.Items {
		states = append(states, it.Status)
	}
	return states
}

// Recalculate refreshes the fields derived from the items.
func (o *Order) Recalculate() {
	total := decimal.Zero
	kitchen := false

	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
		if it.Station == station.Stations.Kitchen {
			kitchen = true
		}
	}

	o.Total = total
	o.HasKitchenItems = kitchen
}

// Item returns the item with the given id, or nil.
func (o *Order) Item(id uuid.UUID) *OrderItem {
	for _, it := range o.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// AddItems appends items submitted during the ordering session.
func (o *Order) AddItems(items ...*OrderItem) error {
	if lifecycle.IsTerminal(o.Status) || lifecycle.IsExhausted(o.Status) {
		return fmt.Errorf("%w: order is %s", ErrOrderClosed, o.Status.Code())
	}

	for _, it := range items {
		it.OrderID = o.ID
		it.BeforeCreate()
		o.Items = append(o.Items, it)
	}

	o.Recalculate()
	o.BeforeUpdate()
	return nil
}

// TransitionTo moves the order to a new state and returns the previous one.
func (o *Order) TransitionTo(to orderstatus.Status) (orderstatus.Status, error) {
	from := o.Status
	if err := lifecycle.ValidateOrderTransition(from, to); err != nil {
		return from, err
	}
	if from == to {
		return from, nil
	}

	o.Status = to
	o.BeforeUpdate()
	return from, nil
}

// Correct applies the administrative exit from the exhausted state.
func (o *Order) Correct(to orderstatus.Status, note string) (orderstatus.Status, error) {
	from := o.Status
	if err := lifecycle.ValidateCorrection(from, to); err != nil {
		return from, err
	}

	o.Status = to
	if note != "" {
		if o.Note != "" {
			o.Note += "\n"
		}
		o.Note += note
	}
	o.BeforeUpdate()
	return from, nil
}

// TransitionItem moves one item forward and returns its previous state.
func (o *Order) TransitionItem(itemID uuid.UUID, to itemstatus.Status) (itemstatus.Status, error) {
	it := o.Item(itemID)
	if it == nil {
		return itemstatus.Status{}, ErrItemNotFound
	}

	from := it.Status
	if err := lifecycle.ValidateItemTransition(from, to); err != nil {
		return from, err
	}
	if from == to {
		return from, nil
	}

	it.Status = to
	it.BeforeUpdate()
	o.Recalculate()
	o.BeforeUpdate()
	return from, nil
}

// Validate checks the order as it is about to be stored.
func (o *Order) Validate() apt.ValidationErrors {
	var errs apt.ValidationErrors

	if o.TableRef == "" && o.CustomerRef == "" {
		errs = append(errs, apt.ValidationError{
			Field:   "table_ref",
			Code:    "required",
			Message: "either table_ref or customer_ref is required",
		})
	}

	if orderstatus.ByName(o.Status.Code()) == nil {
		errs = append(errs, apt.ValidationError{
			Field:   "stato",
			Code:    "invalid_state",
			Message: fmt.Sprintf("unknown order state %q", o.Status.Code()),
		})
	}

	if len(o.Items) == 0 {
		errs = append(errs, apt.ValidationError{
			Field:   "items",
			Code:    "required",
			Message: "an order needs at least one item",
		})
	}

	for i, it := range o.Items {
		errs = append(errs, it.Validate(fmt.Sprintf("items[%d]", i))...)
	}

	if o.Total.IsNegative() {
		errs = append(errs, apt.ValidationError{
			Field:   "total",
			Code:    "negative",
			Message: "total cannot be negative",
		})
	}

	return errs
}

// Clone returns a deep copy of the order and its items.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]*OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		c.Items = append(c.Items, it.Clone())
	}
	c.Recalculate()
	return &c
}
