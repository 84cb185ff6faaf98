package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/event"
)

const (
	replayLimit   = 10000
	DefaultWindow = 24 * time.Hour
)

// ChangeListener receives the ordered snapshot after every cache change.
// Snapshots reach listeners one at a time and never older than the one
// delivered before.
type ChangeListener func(snapshot []*Order)

// OrderStateCache keeps the in-flight orders in memory, indexed by the
// stations their items belong to. Views are computed from its snapshots
// instead of querying the store.
type OrderStateCache struct {
	mu        sync.RWMutex
	orders    map[uuid.UUID]*Order
	byStation map[station.Station]map[uuid.UUID]struct{}
	version   uint64

	stream events.StreamConsumer
	repo   OrderRepo
	window time.Duration
	logger apt.Logger

	listenersMu sync.RWMutex
	listeners   []ChangeListener

	notifyMu  sync.Mutex
	delivered uint64
}

// NewOrderStateCache creates an empty cache. Delivered orders older than
// window are dropped when the cache warms.
func NewOrderStateCache(stream events.StreamConsumer, repo OrderRepo, window time.Duration, logger apt.Logger) *OrderStateCache {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &OrderStateCache{
		orders:    make(map[uuid.UUID]*Order),
		byStation: make(map[station.Station]map[uuid.UUID]struct{}),
		version:   1,
		stream:    stream,
		repo:      repo,
		window:    window,
		logger:    logger,
	}
}

// OnChange registers a listener. Listeners run synchronously on a writer's
// goroutine, and a slow one holds back every later notification.
func (c *OrderStateCache) OnChange(l ChangeListener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Start warms the cache, so it can be registered as a lifecycle component.
func (c *OrderStateCache) Start(ctx context.Context) error {
	return c.Warm(ctx)
}

// Warm loads the orders of the window from the repository, which holds
// every order regardless of age. The event stream only keeps a bounded tail,
// so it is replayed only when no repository is configured or it fails.
func (c *OrderStateCache) Warm(ctx context.Context) error {
	var repoErr error
	if c.repo != nil {
		if repoErr = c.warmFromRepo(ctx); repoErr == nil {
			c.notify()
			return nil
		}
		if c.stream == nil {
			return repoErr
		}
		c.logger.Error("repository warm failed, replaying event stream", "error", repoErr)
	}

	if c.stream == nil {
		c.logger.Info("neither stream nor repo configured, cache remains empty")
		return nil
	}

	if err := c.warmFromStream(ctx); err != nil {
		if repoErr != nil {
			return fmt.Errorf("%w (stream replay: %v)", repoErr, err)
		}
		return fmt.Errorf("cannot warm order cache: %w", err)
	}
	c.pruneDelivered(time.Now().UTC().Add(-c.window))
	c.notify()
	return nil
}

func (c *OrderStateCache) warmFromStream(ctx context.Context) error {
	c.logger.Info("warming order cache from event stream")

	messages, err := c.stream.Fetch(ctx, replayLimit)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var skipped int
	for _, msg := range messages {
		o, err := decodeOrderEvent(msg.Data)
		if err != nil {
			skipped++
			continue
		}
		c.setLocked(o)
	}

	if len(messages) >= replayLimit {
		c.logger.Info("stream replay reached its limit, older orders may be missing", "limit", replayLimit)
	}
	c.logger.Info("order cache warmed from stream", "events", len(messages), "orders", len(c.orders), "skipped", skipped)
	return nil
}

func (c *OrderStateCache) warmFromRepo(ctx context.Context) error {
	c.logger.Info("warming order cache from repository")

	orders, err := c.repo.ListSince(ctx, time.Now().UTC().Add(-c.window))
	if err != nil {
		return fmt.Errorf("cannot warm order cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range orders {
		c.setLocked(o)
	}

	c.logger.Info("order cache warmed from repository", "count", len(orders))
	return nil
}

// Apply decodes an order event and stores its snapshot. Invalid states in
// the payload are returned as errors and leave the cache untouched.
func (c *OrderStateCache) Apply(_ context.Context, data []byte) error {
	o, err := decodeOrderEvent(data)
	if err != nil {
		return err
	}
	c.Set(o)
	return nil
}

// Set stores a copy of the order unless the cache already holds a newer
// version of it.
func (c *OrderStateCache) Set(o *Order) {
	if o == nil {
		return
	}

	c.mu.Lock()
	changed := c.setLocked(o.Clone())
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *OrderStateCache) setLocked(o *Order) bool {
	if old, ok := c.orders[o.ID]; ok {
		if old.UpdatedAt.After(o.UpdatedAt) {
			return false
		}
		c.unindexLocked(old)
	}

	c.orders[o.ID] = o
	c.indexLocked(o)
	c.version++
	return true
}

func (c *OrderStateCache) indexLocked(o *Order) {
	for _, it := range o.Items {
		addToIndex(c.byStation, it.Station, o.ID)
	}
}

func (c *OrderStateCache) unindexLocked(o *Order) {
	for _, it := range o.Items {
		removeFromIndex(c.byStation, it.Station, o.ID)
	}
}

// Get returns a copy of the cached order, or nil.
func (c *OrderStateCache) Get(id uuid.UUID) *Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orders[id].Clone()
}

// Snapshot returns copies of all cached orders in creation order.
func (c *OrderStateCache) Snapshot() []*Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *OrderStateCache) snapshotLocked() []*Order {
	result := make([]*Order, 0, len(c.orders))
	for _, o := range c.orders {
		result = append(result, o.Clone())
	}
	sortByCreation(result)
	return result
}

// GetByStation returns copies of the orders holding at least one item for st,
// in creation order.
func (c *OrderStateCache) GetByStation(st station.Station) []*Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collectLocked(c.byStation[st])
}

func (c *OrderStateCache) collectLocked(ids map[uuid.UUID]struct{}) []*Order {
	result := make([]*Order, 0, len(ids))
	for id := range ids {
		if o := c.orders[id]; o != nil {
			result = append(result, o.Clone())
		}
	}
	sortByCreation(result)
	return result
}

func (c *OrderStateCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

func (c *OrderStateCache) pruneDelivered(before time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for id, o := range c.orders {
		if o.Status == orderstatus.Statuses.Delivered && o.UpdatedAt.Before(before) {
			c.unindexLocked(o)
			delete(c.orders, id)
			removed++
		}
	}
	if removed > 0 {
		c.version++
	}

	c.logger.Info("pruned delivered orders from cache", "count", removed)
}

// notify hands the current snapshot to every listener. Deliveries are
// serialized and the snapshot is read after the previous delivery finished,
// so a writer that lost the race never overwrites a newer state. A version
// already delivered is skipped.
func (c *OrderStateCache) notify() {
	c.listenersMu.RLock()
	listeners := make([]ChangeListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.RLock()
	version := c.version
	snapshot := c.snapshotLocked()
	c.mu.RUnlock()

	if version <= c.delivered {
		return
	}
	c.delivered = version

	for _, l := range listeners {
		l(snapshot)
	}
}

func decodeOrderEvent(data []byte) (*Order, error) {
	var evt event.OrderEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("cannot decode order event: %w", err)
	}
	return FromSnapshot(evt.Order)
}

func sortByCreation(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}

func addToIndex[K comparable](index map[K]map[uuid.UUID]struct{}, key K, id uuid.UUID) {
	ids, ok := index[key]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		index[key] = ids
	}
	ids[id] = struct{}{}
}

func removeFromIndex[K comparable](index map[K]map[uuid.UUID]struct{}, key K, id uuid.UUID) {
	ids, ok := index[key]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(index, key)
	}
}
