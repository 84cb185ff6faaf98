package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockOrdersService is an httptest-backed stand-in for the orders API.
type MockOrdersService struct {
	mu       sync.Mutex
	Existing int
	Placed   []map[string]any
	Patches  []string
	Queries  []string
	Summary  map[string]any

	server *httptest.Server
}

func NewMockOrdersService(t *testing.T) *MockOrdersService {
	t.Helper()
	m := &MockOrdersService{}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.server.Close)
	return m
}

func (m *MockOrdersService) URL() string {
	return m.server.URL
}

func (m *MockOrdersService) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/orders":
		orders := make([]map[string]string, m.Existing)
		for i := range orders {
			orders[i] = map[string]string{"id": fmt.Sprintf("existing-%d", i)}
		}
		writeData(w, http.StatusOK, orders)

	case r.Method == http.MethodPost && r.URL.Path == "/orders":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.Placed = append(m.Placed, body)

		n := len(m.Placed)
		rawItems, _ := body["items"].([]any)
		items := make([]map[string]string, len(rawItems))
		for i := range items {
			items[i] = map[string]string{"id": fmt.Sprintf("item-%d-%d", n, i)}
		}
		writeData(w, http.StatusCreated, map[string]any{"id": fmt.Sprintf("order-%d", n), "items": items})

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/orders/"):
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.Patches = append(m.Patches, r.URL.Path+"="+body["stato"])
		writeData(w, http.StatusOK, map[string]string{"id": "ok"})

	case r.Method == http.MethodGet && r.URL.Path == "/views":
		m.Queries = append(m.Queries, r.URL.RawQuery)
		writeData(w, http.StatusOK, m.Summary)

	default:
		http.NotFound(w, r)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}
