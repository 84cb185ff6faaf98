package seeding

import (
	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
)

// Item is the wire shape of an order line accepted by POST /orders.
type Item struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Station     string `json:"postazione"`
	Note        string `json:"note,omitempty"`
}

// Order is a demo order plus the states it should be driven to once placed.
type Order struct {
	TableRef    string `json:"table_ref,omitempty"`
	CustomerRef string `json:"customer_ref,omitempty"`
	WaiterRef   string `json:"waiter_ref,omitempty"`
	Items       []Item `json:"items"`

	ItemState itemstatus.Status  `json:"-"`
	Stato     orderstatus.Status `json:"-"`
}

func item(name, price string, st station.Station, qty int) Item {
	return Item{ProductName: name, Quantity: qty, UnitPrice: price, Station: st.Code()}
}

// DemoOrders returns a lunch service spread over every board tab.
func DemoOrders() []Order {
	s := orderstatus.Statuses
	is := itemstatus.Statuses
	kitchen := station.Stations.Kitchen
	bar := station.Stations.Bar

	return []Order{
		{
			TableRef:  "T10",
			WaiterRef: "sara",
			Items: []Item{
				item("Bruschetta", "4.50", kitchen, 2),
				item("Lambrusco", "18.00", bar, 1),
			},
			ItemState: is.Submitted,
			Stato:     s.Ordered,
		},
		{
			TableRef:  "T11",
			WaiterRef: "luca",
			Items: []Item{
				item("Lasagna", "12.00", kitchen, 2),
				item("Acqua frizzante", "2.50", station.Stations.Other, 1),
			},
			ItemState: is.Working,
			Stato:     s.Preparing,
		},
		{
			CustomerRef: "asporto-42",
			WaiterRef:   "sara",
			Items:       []Item{item("Pizza diavola", "9.00", kitchen, 3)},
			ItemState:   is.Ready,
			Stato:       s.Ready,
		},
		{
			TableRef:  "T12",
			WaiterRef: "luca",
			Items:     []Item{item("Ossobuco", "21.00", kitchen, 1)},
			ItemState: is.Submitted,
			Stato:     s.Exhausted,
		},
		{
			TableRef:  "T13",
			WaiterRef: "sara",
			Items:     []Item{item("Americano", "7.00", bar, 2)},
			ItemState: is.Delivered,
			Stato:     s.Delivered,
		},
	}
}
