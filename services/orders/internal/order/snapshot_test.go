package order

import (
	"errors"
	"testing"

	"github.com/appetiteclub/orderboard/pkg/enums"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/event"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := 2
	it := newTestItem("Calice Vermentino", "6.50", 2, station.Stations.Bar)
	it.Glasses = &g
	o := newTestOrder(it, newTestItem("Tagliere", "14.00", 1, station.Stations.Kitchen))
	o.WaiterRef = "marta"

	got, err := FromSnapshot(ToSnapshot(o))
	if err != nil {
		t.Fatalf("FromSnapshot() error = %v", err)
	}

	if got.ID != o.ID || got.Status != o.Status || got.WaiterRef != "marta" {
		t.Errorf("FromSnapshot() = %+v, want %+v", got, o)
	}
	if !got.Total.Equal(o.Total) {
		t.Errorf("Total = %s, want %s", got.Total, o.Total)
	}
	if len(got.Items) != 2 || got.Items[0].OrderID != o.ID {
		t.Fatalf("Items = %+v", got.Items)
	}
	if got.Items[0].Glasses == nil || *got.Items[0].Glasses != 2 {
		t.Error("Glasses lost in round trip")
	}
	if !got.HasKitchenItems {
		t.Error("HasKitchenItems should be recomputed")
	}
}

func TestFromSnapshotRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *event.OrderSnapshot)
		wantState bool
	}{
		{
			name:      "unknownOrderState",
			mutate:    func(s *event.OrderSnapshot) { s.Stato = "ANNULLATO" },
			wantState: true,
		},
		{
			name:      "unknownItemState",
			mutate:    func(s *event.OrderSnapshot) { s.Items[0].Stato = "BRUCIATO" },
			wantState: true,
		},
		{
			name:   "unknownStation",
			mutate: func(s *event.OrderSnapshot) { s.Items[0].Station = "PIZZERIA" },
		},
		{
			name:   "badPrice",
			mutate: func(s *event.OrderSnapshot) { s.Items[0].UnitPrice = "sette" },
		},
		{
			name:   "badID",
			mutate: func(s *event.OrderSnapshot) { s.ID = "42" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrder(newTestItem("Margherita", "7.50", 1, station.Stations.Kitchen))
			snap := ToSnapshot(o)
			tt.mutate(&snap)

			got, err := FromSnapshot(snap)
			if err == nil {
				t.Fatalf("FromSnapshot() = %+v, want error", got)
			}

			var stateErr *enums.InvalidStateError
			if errors.As(err, &stateErr) != tt.wantState {
				t.Errorf("FromSnapshot() error = %v, InvalidStateError expected: %v", err, tt.wantState)
			}
		})
	}
}
