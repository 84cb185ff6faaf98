package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/services/orders/internal/order"
	"github.com/appetiteclub/orderboard/services/orders/internal/viewfilter"
)

const keepaliveInterval = 30 * time.Second

// BoardEvent is the payload of the "board" event.
type BoardEvent struct {
	Station string         `json:"postazione,omitempty"`
	Orders  int            `json:"orders"`
	Counts  map[string]int `json:"counts"`
}

// ViewEvent is the payload of the "view" event, sent when a tab is requested.
type ViewEvent struct {
	Tab    string         `json:"tab"`
	Orders []*order.Order `json:"orders"`
}

// Handler serves the live board over Server-Sent Events.
type Handler struct {
	broker    *Broker
	router    *viewfilter.Router[*order.Order]
	logger    apt.Logger
	keepalive time.Duration
}

func NewHandler(broker *Broker, metrics apt.Metrics, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		broker:    broker,
		router:    viewfilter.NewRouter[*order.Order](logger, metrics),
		logger:    logger,
		keepalive: keepaliveInterval,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/views", h.ServeHTTP)
}

// ServeHTTP streams a "board" event with the tab counts on every change and,
// when ?tab= is given, a "view" event with that tab's orders.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")

	var st *station.Station
	if raw := r.URL.Query().Get("postazione"); raw != "" {
		if st = station.ByName(raw); st == nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid postazione parameter")
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	h.logger.Info("new view stream connection", "subscriber_id", subscriberID, "tab", tab)

	updates := h.broker.Subscribe(subscriberID)
	defer h.broker.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("view stream client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case u, ok := <-updates:
			if !ok {
				h.logger.Info("view stream closed", "subscriber_id", subscriberID)
				return
			}
			if err := h.writeUpdate(w, r, u, st, tab); err != nil {
				h.logger.Error("cannot write view stream update", "subscriber_id", subscriberID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeUpdate(w http.ResponseWriter, r *http.Request, u Update, st *station.Station, tab string) error {
	orders, board := u.Orders, u.Board
	if st != nil {
		orders = forStation(orders, *st)
		board = viewfilter.Partition(orders)
	}

	be := BoardEvent{Orders: len(orders), Counts: make(map[string]int, len(board))}
	if st != nil {
		be.Station = st.Code()
	}
	for name, bucket := range board {
		be.Counts[name] = len(bucket)
	}
	if err := sendJSONEvent(w, "board", be); err != nil {
		return err
	}

	if tab == "" {
		return nil
	}
	return sendJSONEvent(w, "view", ViewEvent{
		Tab:    tab,
		Orders: h.router.Route(r.Context(), orders, tab),
	})
}

func forStation(orders []*order.Order, st station.Station) []*order.Order {
	result := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		for _, it := range o.Items {
			if it.Station == st {
				result = append(result, o)
				break
			}
		}
	}
	return result
}

func sendJSONEvent(w http.ResponseWriter, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	sendSSEEvent(w, eventType, string(data))
	return nil
}

// sendSSEEvent writes one event, prefixing every line of data.
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
