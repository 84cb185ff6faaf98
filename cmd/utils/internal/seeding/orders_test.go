package seeding

import (
	"testing"

	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
)

func TestDemoOrders(t *testing.T) {
	orders := DemoOrders()
	if len(orders) == 0 {
		t.Fatal("no demo orders")
	}

	seen := map[orderstatus.Status]bool{}
	for i, o := range orders {
		if o.TableRef == "" && o.CustomerRef == "" {
			t.Errorf("order %d has neither table nor customer", i)
		}
		if len(o.Items) == 0 {
			t.Errorf("order %d has no items", i)
		}
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				t.Errorf("order %d item %s has quantity %d", i, it.ProductName, it.Quantity)
			}
			if station.ByName(it.Station) == nil {
				t.Errorf("order %d item %s has unknown station %q", i, it.ProductName, it.Station)
			}
		}
		seen[o.Stato] = true
	}

	for _, s := range orderstatus.All {
		if !seen[s] {
			t.Errorf("no demo order ends in %s", s.Code())
		}
	}
}
