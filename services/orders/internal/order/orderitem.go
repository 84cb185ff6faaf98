package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
)

// priceScale matches the NUMERIC(12,2) price columns.
const priceScale = 2

type OrderItem struct {
	ID            uuid.UUID         `json:"id"`
	OrderID       uuid.UUID         `json:"order_id"`
	ProductName   string            `json:"product_name"`
	ProductID     *int64            `json:"product_id,omitempty"`
	Quantity      int               `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	Status        itemstatus.Status `json:"stato"`
	Station       station.Station   `json:"postazione"`
	Note          string            `json:"note,omitempty"`
	Glasses       *int              `json:"glasses,omitempty"`
	Configuration json.RawMessage   `json:"configuration,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func NewOrderItem() *OrderItem {
	return &OrderItem{
		ID:        apt.GenerateNewID(),
		Status:    itemstatus.Statuses.Submitted,
		Station:   station.Stations.Kitchen,
		UnitPrice: decimal.Zero,
	}
}

func (i *OrderItem) GetID() uuid.UUID {
	return i.ID
}

func (i *OrderItem) ResourceType() string {
	return "order-item"
}

func (i *OrderItem) SetID(id uuid.UUID) {
	i.ID = id
}

func (i *OrderItem) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = apt.GenerateNewID()
	}
}

func (i *OrderItem) BeforeCreate() {
	i.EnsureID()
	now := time.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	if i.Status.IsZero() {
		i.Status = itemstatus.Statuses.Submitted
	}
}

func (i *OrderItem) BeforeUpdate() {
	i.UpdatedAt = time.Now().UTC()
}

func (i *OrderItem) ItemStatus() itemstatus.Status {
	return i.Status
}

// Subtotal is quantity times unit price.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) Validate(field string) apt.ValidationErrors {
	var errs apt.ValidationErrors

	if i.ProductName == "" {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".product_name",
			Code:    "required",
			Message: "product name is required",
		})
	}

	if i.Quantity <= 0 {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".quantity",
			Code:    "positive",
			Message: "quantity must be greater than zero",
		})
	}

	if i.UnitPrice.IsNegative() {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".unit_price",
			Code:    "negative",
			Message: "unit price cannot be negative",
		})
	}

	if !i.UnitPrice.Equal(i.UnitPrice.Round(priceScale)) {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".unit_price",
			Code:    "scale",
			Message: "unit price cannot have more than two decimal places",
		})
	}

	if itemstatus.ByName(i.Status.Code()) == nil {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".stato",
			Code:    "invalid_state",
			Message: fmt.Sprintf("unknown item state %q", i.Status.Code()),
		})
	}

	if station.ByName(i.Station.Code()) == nil {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".postazione",
			Code:    "invalid",
			Message: fmt.Sprintf("unknown station %q", i.Station.Code()),
		})
	}

	if i.Glasses != nil && *i.Glasses < 0 {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".glasses",
			Code:    "negative",
			Message: "glasses cannot be negative",
		})
	}

	if len(i.Configuration) > 0 && !json.Valid(i.Configuration) {
		errs = append(errs, apt.ValidationError{
			Field:   field + ".configuration",
			Code:    "invalid",
			Message: "configuration must be valid JSON",
		})
	}

	return errs
}

func (i *OrderItem) Clone() *OrderItem {
	if i == nil {
		return nil
	}
	c := *i
	if i.ProductID != nil {
		id := *i.ProductID
		c.ProductID = &id
	}
	if i.Glasses != nil {
		g := *i.Glasses
		c.Glasses = &g
	}
	if i.Configuration != nil {
		c.Configuration = append(json.RawMessage(nil), i.Configuration...)
	}
	return &c
}
