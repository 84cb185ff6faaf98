package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums"
	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/services/orders/internal/lifecycle"
	"github.com/appetiteclub/orderboard/services/orders/internal/viewfilter"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
	service *Service
	router  *viewfilter.Router[*Order]
}

type HandlerDeps struct {
	Service *Service
	Metrics apt.Metrics
}

type StatusRequest struct {
	Stato orderstatus.Status `json:"stato"`
}

type CorrectionRequest struct {
	Stato orderstatus.Status `json:"stato"`
	Note  string             `json:"note"`
}

type ItemStatusRequest struct {
	Stato itemstatus.Status `json:"stato"`
}

type AddItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

// BoardSummary is the per-tab count of the orders a station can see.
type BoardSummary struct {
	Station string         `json:"postazione,omitempty"`
	Orders  int            `json:"orders"`
	Counts  map[string]int `json:"counts"`
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:  config,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
		service: hd.Service,
		router:  viewfilter.NewRouter[*Order](logger, hd.Metrics),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/items", h.AddItems)
		r.Patch("/{id}/status", h.ChangeStatus)
		r.Post("/{id}/correction", h.CorrectOrder)
		r.Patch("/{id}/items/{itemID}/status", h.ChangeItemStatus)
	})

	r.Route("/views", func(r chi.Router) {
		r.Get("/", h.ViewCounts)
		r.Get("/{tab}", h.View)
	})
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PlaceOrder")
	defer finish()

	log := h.log(r)

	req, ok := decodePayload[PlaceOrderRequest](w, r, log)
	if !ok {
		return
	}

	o, err := h.service.Place(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot place order")
		return
	}

	log.Info("order placed", "order_id", o.ID.String(), "items", len(o.Items))
	apt.Respond(w, http.StatusCreated, o, nil)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot load order")
		return
	}

	links := apt.RESTfulLinksFor(o)
	apt.RespondSuccess(w, o, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	var filter *orderstatus.Status
	if raw := r.URL.Query().Get("stato"); raw != "" {
		s, err := orderstatus.Parse(raw)
		if err != nil {
			log.Debug("invalid stato filter", "stato", raw)
			apt.Error(w, http.StatusBadRequest, "invalid_state", err.Error())
			return
		}
		filter = &s
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("error retrieving orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddItems")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	req, ok := decodePayload[AddItemsRequest](w, r, log)
	if !ok {
		return
	}

	o, err := h.service.AddItems(r.Context(), id, req.Items)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot add items")
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ChangeStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	req, ok := decodePayload[StatusRequest](w, r, log)
	if !ok {
		return
	}
	if req.Stato.IsZero() {
		apt.Error(w, http.StatusBadRequest, "invalid_state", "stato is required")
		return
	}

	o, err := h.service.ChangeStatus(r.Context(), id, req.Stato)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot change order status")
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) CorrectOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CorrectOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}

	req, ok := decodePayload[CorrectionRequest](w, r, log)
	if !ok {
		return
	}
	if req.Stato.IsZero() {
		req.Stato = orderstatus.Statuses.Ordered
	}

	o, err := h.service.Correct(r.Context(), id, req.Stato, req.Note)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot correct order")
		return
	}

	log.Info("exhausted order corrected", "order_id", o.ID.String())
	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

func (h *Handler) ChangeItemStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ChangeItemStatus")
	defer finish()

	log := h.log(r)

	orderID, ok := h.parseIDParam(w, r, log, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseIDParam(w, r, log, "itemID")
	if !ok {
		return
	}

	req, ok := decodePayload[ItemStatusRequest](w, r, log)
	if !ok {
		return
	}
	if req.Stato.IsZero() {
		apt.Error(w, http.StatusBadRequest, "invalid_state", "stato is required")
		return
	}

	o, err := h.service.ChangeItemStatus(r.Context(), orderID, itemID, req.Stato)
	if err != nil {
		h.respondServiceError(w, log, err, "cannot change item status")
		return
	}

	apt.RespondSuccess(w, o, apt.RESTfulLinksFor(o)...)
}

// View returns the in-flight orders of one tab. Unknown tabs answer with an
// empty collection.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.View")
	defer finish()

	log := h.log(r)

	st, ok := h.parseStationQuery(w, r, log)
	if !ok {
		return
	}

	tab := chi.URLParam(r, "tab")
	orders := h.router.Route(r.Context(), h.service.InFlight(st), tab)

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) ViewCounts(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ViewCounts")
	defer finish()

	log := h.log(r)

	st, ok := h.parseStationQuery(w, r, log)
	if !ok {
		return
	}

	orders := h.service.InFlight(st)

	summary := BoardSummary{
		Orders: len(orders),
		Counts: h.router.Counts(r.Context(), orders),
	}
	if st != nil {
		summary.Station = st.Code()
	}

	apt.RespondSuccess(w, summary)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, log apt.Logger, err error, msg string) {
	var verrs apt.ValidationErrors
	var stateErr *enums.InvalidStateError

	switch {
	case errors.As(err, &verrs):
		log.Debug("validation failed", "errors", len(verrs))
		apt.Error(w, http.StatusUnprocessableEntity, "validation_failed", "Order validation failed", verrs...)
	case errors.As(err, &stateErr):
		log.Debug("invalid state value", "kind", stateErr.Kind, "value", stateErr.Value)
		apt.Error(w, http.StatusBadRequest, "invalid_state", stateErr.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrCorrectionRequired):
		log.Debug("transition rejected", "error", err)
		apt.Error(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, ErrOrderClosed):
		apt.Error(w, http.StatusConflict, "order_closed", err.Error())
	case errors.Is(err, ErrNotFound):
		apt.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrItemNotFound):
		apt.RespondError(w, http.StatusNotFound, "Order item not found")
	default:
		log.Error(msg, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not process order")
	}
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Debug("invalid id parameter", "param", name, "value", raw)
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parseStationQuery(w http.ResponseWriter, r *http.Request, log apt.Logger) (*station.Station, bool) {
	raw := r.URL.Query().Get("postazione")
	if raw == "" {
		return nil, true
	}

	st := station.ByName(raw)
	if st == nil {
		log.Debug("invalid postazione parameter", "postazione", raw)
		apt.RespondError(w, http.StatusBadRequest, "Invalid postazione parameter")
		return nil, false
	}
	return st, true
}

// decodePayload reads a bounded JSON body into T. State values outside their
// enumeration are rejected here with an invalid_state error.
func decodePayload[T any](w http.ResponseWriter, r *http.Request, log apt.Logger) (T, bool) {
	var req T

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return req, false
	}

	if err := json.Unmarshal(body, &req); err != nil {
		var stateErr *enums.InvalidStateError
		if errors.As(err, &stateErr) {
			log.Debug("invalid state in request body", "kind", stateErr.Kind, "value", stateErr.Value)
			apt.Error(w, http.StatusBadRequest, "invalid_state", stateErr.Error())
			return req, false
		}
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return req, false
	}

	return req, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
