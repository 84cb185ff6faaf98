package viewfilter

import (
	"context"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/orderboard/pkg/enums/viewtab"
)

const (
	metricEvaluations = "viewfilter.evaluations"
	metricUnknownTab  = "viewfilter.unknown_tab"
)

// Router wraps the pure filter with injected diagnostics for the callers
// that serve station screens.
type Router[T Order] struct {
	logger  apt.Logger
	metrics apt.Metrics
}

func NewRouter[T Order](logger apt.Logger, metrics apt.Metrics) *Router[T] {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if metrics == nil {
		metrics = apt.NoopMetrics{}
	}
	return &Router[T]{
		logger:  logger,
		metrics: metrics,
	}
}

// Route returns the orders for tab. An unknown tab is reported and answered
// with an empty result.
func (r *Router[T]) Route(ctx context.Context, orders []T, tab string) []T {
	if viewtab.ByName(tab) == nil {
		r.logger.Debug("unknown view tab requested", "tab", tab)
		r.metrics.Counter(ctx, metricUnknownTab, 1, map[string]string{"tab": tab})
		return make([]T, 0)
	}

	result := ForView(orders, tab)
	r.metrics.Counter(ctx, metricEvaluations, 1, map[string]string{"tab": tab})
	r.logger.Debug("view evaluated", "tab", tab, "in", len(orders), "out", len(result))
	return result
}

// Counts sizes every tab in one pass.
func (r *Router[T]) Counts(ctx context.Context, orders []T) map[string]int {
	counts := Counts(orders)
	r.metrics.Counter(ctx, metricEvaluations, float64(len(viewtab.All)), map[string]string{"tab": "*"})
	return counts
}
