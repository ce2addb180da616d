// internal/inventory/metrics.go
package inventory

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

// ItemsGaugeName is the exported name of the item count gauge.
const ItemsGaugeName = "inventory_items_total"

// Metrics holds aggregates derived from the store.
type Metrics struct {
	itemCount atomic.Int64
}

// NewMetrics registers the item count gauge with meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	_, err := meter.Int64ObservableGauge(ItemsGaugeName,
		metric.WithDescription("Total items in inventory"),
		metric.WithUnit("{item}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.itemCount.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create items gauge: %w", err)
	}
	return m, nil
}

// Refresh sets the item count to the current store size.
func (m *Metrics) Refresh(count int) {
	m.itemCount.Store(int64(count))
}

// ItemCount returns the last refreshed item count.
func (m *Metrics) ItemCount() int {
	return int(m.itemCount.Load())
}
