package mongo

import (
	"encoding/json"
	"time"

	"github.com/appetiteclub/orderboard/pkg/event"
	"github.com/appetiteclub/orderboard/services/orders/internal/order"
)

// orderDocument is the stored shape of an order. Items are embedded, money is
// kept as decimal strings and states as their codes.
type orderDocument struct {
	ID              string         `bson:"_id"`
	TableRef        string         `bson:"table_ref,omitempty"`
	CustomerRef     string         `bson:"customer_ref,omitempty"`
	WaiterRef       string         `bson:"waiter_ref,omitempty"`
	Stato           string         `bson:"stato"`
	HasKitchenItems bool           `bson:"has_kitchen_items"`
	Total           string         `bson:"total"`
	Note            string         `bson:"note,omitempty"`
	Items           []itemDocument `bson:"items"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ID            string    `bson:"id"`
	ProductName   string    `bson:"product_name"`
	ProductID     *int64    `bson:"product_id,omitempty"`
	Quantity      int       `bson:"quantity"`
	UnitPrice     string    `bson:"unit_price"`
	Stato         string    `bson:"stato"`
	Postazione    string    `bson:"postazione"`
	Note          string    `bson:"note,omitempty"`
	Glasses       *int      `bson:"glasses,omitempty"`
	Configuration string    `bson:"configuration,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toDocument(o *order.Order) orderDocument {
	s := order.ToSnapshot(o)
	doc := orderDocument{
		ID:              s.ID,
		TableRef:        s.TableRef,
		CustomerRef:     s.CustomerRef,
		WaiterRef:       s.WaiterRef,
		Stato:           s.Stato,
		HasKitchenItems: s.HasKitchenItems,
		Total:           s.Total,
		Note:            s.Note,
		Items:           make([]itemDocument, 0, len(s.Items)),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	for _, it := range s.Items {
		doc.Items = append(doc.Items, itemDocument{
			ID:            it.ID,
			ProductName:   it.ProductName,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			Stato:         it.Stato,
			Postazione:    it.Station,
			Note:          it.Note,
			Glasses:       it.Glasses,
			Configuration: string(it.Configuration),
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		})
	}
	return doc
}

// fromDocument rebuilds the order. Stored states outside their enumeration
// fail with an *enums.InvalidStateError.
func fromDocument(doc orderDocument) (*order.Order, error) {
	s := event.OrderSnapshot{
		ID:              doc.ID,
		TableRef:        doc.TableRef,
		CustomerRef:     doc.CustomerRef,
		WaiterRef:       doc.WaiterRef,
		Stato:           doc.Stato,
		HasKitchenItems: doc.HasKitchenItems,
		Total:           doc.Total,
		Note:            doc.Note,
		Items:           make([]event.OrderItemSnapshot, 0, len(doc.Items)),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	for _, it := range doc.Items {
		var cfg json.RawMessage
		if it.Configuration != "" {
			cfg = json.RawMessage(it.Configuration)
		}
		s.Items = append(s.Items, event.OrderItemSnapshot{
			ID:            it.ID,
			ProductName:   it.ProductName,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			Stato:         it.Stato,
			Station:       it.Postazione,
			Note:          it.Note,
			Glasses:       it.Glasses,
			Configuration: cfg,
			CreatedAt:     it.CreatedAt,
			UpdatedAt:     it.UpdatedAt,
		})
	}
	return order.FromSnapshot(s)
}
