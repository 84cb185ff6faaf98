package event

import "time"

const (
	StationItemsTopic             = "stations.items"
	EventStationItemStatusChanged = "station.item.status_changed"
)

// StationItemEvent is reported by kitchen and bar displays when they move an
// item along its pipeline.
type StationItemEvent struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	OrderID     string    `json:"order_id"`
	OrderItemID string    `json:"order_item_id"`
	Station     string    `json:"postazione"`
	Stato       string    `json:"stato"`
	ReportedBy  string    `json:"reported_by,omitempty"`
}
