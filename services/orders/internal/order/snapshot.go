package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/event"
)

// ToSnapshot converts an order to its wire form.
func ToSnapshot(o *Order) event.OrderSnapshot {
	s := event.OrderSnapshot{
		ID:              o.ID.String(),
		TableRef:        o.TableRef,
		CustomerRef:     o.CustomerRef,
		WaiterRef:       o.WaiterRef,
		Stato:           o.Status.Code(),
		HasKitchenItems: o.HasKitchenItems,
		Total:           o.Total.String(),
		Note:            o.Note,
		Items:           make([]event.OrderItemSnapshot, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	for _, it := range o.Items {
		s.Items = append(s.Items, event.OrderItemSnapshot{
			ID:            it.ID.String(),
			ProductName:   it.ProductName,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice.String(),
			Stato:         it.Status.Code(),
			Station:       it.Station.Code(),
			Note:          it.Note,
			Glasses:       it.Glasses,
			Configuration: it.Configuration,
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		})
	}

	return s
}

// FromSnapshot rebuilds an order received from the wire. Unknown states fail
// with an *enums.InvalidStateError.
func FromSnapshot(s event.OrderSnapshot) (*Order, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", s.ID, err)
	}

	stato, err := orderstatus.Parse(s.Stato)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:          id,
		TableRef:    s.TableRef,
		CustomerRef: s.CustomerRef,
		WaiterRef:   s.WaiterRef,
		Status:      stato,
		Note:        s.Note,
		Items:       make([]*OrderItem, 0, len(s.Items)),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}

	for _, is := range s.Items {
		it, err := itemFromSnapshot(id, is)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}

	o.Recalculate()
	return o, nil
}

func itemFromSnapshot(orderID uuid.UUID, s event.OrderItemSnapshot) (*OrderItem, error) {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order item id %q: %w", s.ID, err)
	}

	stato, err := itemstatus.Parse(s.Stato)
	if err != nil {
		return nil, err
	}

	st := station.ByName(s.Station)
	if st == nil {
		return nil, fmt.Errorf("unknown station %q", s.Station)
	}

	price, err := decimal.NewFromString(s.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid unit price %q: %w", s.UnitPrice, err)
	}

	return &OrderItem{
		ID:            id,
		OrderID:       orderID,
		ProductName:   s.ProductName,
		ProductID:     s.ProductID,
		Quantity:      s.Quantity,
		UnitPrice:     price,
		Status:        stato,
		Station:       *st,
		Note:          s.Note,
		Glasses:       s.Glasses,
		Configuration: s.Configuration,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}, nil
}
