// Package viewfilter assigns in-flight orders to the station view tabs.
// Everything here is a pure function of its input; it holds no state and
// needs no locking. Item states are read fresh on every evaluation.
package viewfilter

import (
	"slices"

	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/viewtab"
	"github.com/appetiteclub/orderboard/services/orders/internal/lifecycle"
)

// Order is the view of an order the filter needs.
type Order interface {
	OrderStatus() orderstatus.Status
	ItemStatuses() []itemstatus.Status
}

type predicate func(stato orderstatus.Status, items []itemstatus.Status) bool

// predicates is the whole behavioral contract of the filter. The pronti rule
// accepts either an explicit PRONTO order or one whose items are all PRONTO,
// so an IN_PREPARAZIONE order with every item ready shows in two tabs.
// Exhausted orders never leave esauriti.
var predicates = map[viewtab.Tab]predicate{
	viewtab.Tabs.Exhausted: func(stato orderstatus.Status, _ []itemstatus.Status) bool {
		return lifecycle.IsExhausted(stato)
	},
	viewtab.Tabs.Waiting: func(stato orderstatus.Status, items []itemstatus.Status) bool {
		return stato == orderstatus.Statuses.Ordered && slices.Contains(items, itemstatus.Statuses.Submitted)
	},
	viewtab.Tabs.Preparing: func(stato orderstatus.Status, _ []itemstatus.Status) bool {
		return stato == orderstatus.Statuses.Preparing
	},
	viewtab.Tabs.Ready: func(stato orderstatus.Status, items []itemstatus.Status) bool {
		if lifecycle.IsTerminal(stato) || lifecycle.IsExhausted(stato) {
			return false
		}
		return stato == orderstatus.Statuses.Ready || lifecycle.ItemsAllReady(items)
	},
	viewtab.Tabs.PickedUp: func(stato orderstatus.Status, _ []itemstatus.Status) bool {
		return lifecycle.IsTerminal(stato)
	},
}

// ForView returns the orders belonging to tab, in input order. Unknown tabs
// yield an empty result. The input slice is not modified and the result is
// never nil.
func ForView[T Order](orders []T, tab string) []T {
	result := make([]T, 0)

	t := viewtab.ByName(tab)
	if t == nil {
		return result
	}

	match := predicates[*t]
	for _, o := range orders {
		if match(o.OrderStatus(), o.ItemStatuses()) {
			result = append(result, o)
		}
	}

	return result
}

// Partition evaluates every tab in a single pass over orders. Each tab key is
// present even when its bucket is empty.
func Partition[T Order](orders []T) map[string][]T {
	board := make(map[string][]T, len(viewtab.All))
	for _, t := range viewtab.All {
		board[t.Code()] = make([]T, 0)
	}

	for _, o := range orders {
		stato, items := o.OrderStatus(), o.ItemStatuses()
		for _, t := range viewtab.All {
			if predicates[t](stato, items) {
				board[t.Code()] = append(board[t.Code()], o)
			}
		}
	}

	return board
}

// Counts returns the bucket sizes of Partition.
func Counts[T Order](orders []T) map[string]int {
	counts := make(map[string]int, len(viewtab.All))
	for tab, bucket := range Partition(orders) {
		counts[tab] = len(bucket)
	}
	return counts
}
