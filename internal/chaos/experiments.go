// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"stockroom/internal/clients"
	"stockroom/internal/inventory"
	"stockroom/internal/ledger"
)

// RegisterExperiments registers the predefined consistency experiments.
func (e *Engine) RegisterExperiments() {
	e.RegisterExperiment(e.ConcurrentMutationExperiment(20, 5, 30*time.Second))
	e.RegisterExperiment(e.LedgerCompletenessExperiment(30 * time.Second))
}

// ItemCountDrift is the gap between the exported item count and the number of
// listable items. It must be zero whenever the service is at rest.
func (e *Engine) ItemCountDrift(ctx context.Context) (float64, error) {
	health, err := e.client.Health(ctx)
	if err != nil {
		return 0, fmt.Errorf("health: %w", err)
	}
	items, err := e.client.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	return math.Abs(float64(health.ItemsCount - len(items))), nil
}

// LedgerMismatches counts live items whose history does not explain their
// current quantity.
func (e *Engine) LedgerMismatches(ctx context.Context) (float64, error) {
	items, err := e.client.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}

	mismatches := 0
	for _, item := range items {
		entries, err := e.client.ItemHistory(ctx, item.ID)
		if err != nil {
			return 0, fmt.Errorf("history of %s: %w", item.ID, err)
		}
		if !historyExplains(entries, item.Qty) {
			mismatches++
		}
	}
	return float64(mismatches), nil
}

func historyExplains(entries []ledger.Entry, qty int) bool {
	if len(entries) == 0 || entries[0].Action != ledger.ActionCreate {
		return false
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].AfterQty, entries[i].BeforeQty
		if prev == nil || cur == nil || *prev != *cur {
			return false
		}
	}
	last := entries[len(entries)-1]
	return last.Action != ledger.ActionDelete && last.AfterQty != nil && *last.AfterQty == qty
}

// ConcurrentMutationExperiment hammers the service with interleaved creates,
// updates and deletes from many callers at once.
func (e *Engine) ConcurrentMutationExperiment(workers, updatesPerItem int, duration time.Duration) Experiment {
	var mu sync.Mutex
	var created []string

	return Experiment{
		Name:       "concurrent-mutation-consistency",
		Hypothesis: "Item count, item list and ledger agree after concurrent mutations",
		SteadyState: []Metric{
			{
				Name:  "item_count_drift",
				Query: e.ItemCountDrift,
				Bound: Bound{Cmp: Equal, Limit: 0},
			},
			{
				Name:  "ledger_mismatches",
				Query: e.LedgerMismatches,
				Bound: Bound{Cmp: Equal, Limit: 0},
			},
		},
		Inject: []Step{
			{
				Name: "concurrent-mutations",
				Run: func(ctx context.Context) error {
					var wg sync.WaitGroup
					errs := make(chan error, workers)

					for w := 0; w < workers; w++ {
						wg.Add(1)
						go func(w int) {
							defer wg.Done()
							client := e.client.WithActor(fmt.Sprintf("chaos-%d", w))
							if err := churnItem(ctx, client, w, updatesPerItem, &mu, &created); err != nil {
								errs <- err
							}
						}(w)
					}

					wg.Wait()
					close(errs)

					var joined error
					for err := range errs {
						joined = errors.Join(joined, err)
					}
					return joined
				},
			},
		},
		Rollback: []Step{
			{
				Name: "delete-leftovers",
				Run: func(ctx context.Context) error {
					mu.Lock()
					ids := created
					created = nil
					mu.Unlock()

					var joined error
					for _, id := range ids {
						if err := e.client.WithActor("chaos-cleanup").DeleteItem(ctx, id); err != nil && !errors.Is(err, inventory.ErrNotFound) {
							joined = errors.Join(joined, err)
						}
					}
					return joined
				},
			},
		},
		Assertions: []Assertion{
			{
				Metric:  "item_count_drift",
				Check:   func(v float64) bool { return v == 0 },
				Message: "Exported item count must equal the number of listed items",
			},
			{
				Metric:  "ledger_mismatches",
				Check:   func(v float64) bool { return v == 0 },
				Message: "Every live item's history must explain its quantity",
			},
		},
		Duration: duration,
	}
}

// churnItem creates an item, updates it repeatedly and deletes every other one.
func churnItem(ctx context.Context, client *clients.InventoryClient, w, updates int, mu *sync.Mutex, created *[]string) error {
	name := fmt.Sprintf("chaos-item-%d", w)
	qty, price := w, 1.0

	item, err := client.CreateItem(ctx, clients.ItemFields{Name: &name, Qty: &qty, Price: &price})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	for u := 0; u < updates; u++ {
		next := qty + u + 1
		if _, err := client.UpdateItem(ctx, item.ID, clients.ItemFields{Qty: &next}); err != nil {
			return fmt.Errorf("update %s: %w", item.ID, err)
		}
	}

	if w%2 == 0 {
		if err := client.DeleteItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete %s: %w", item.ID, err)
		}
		return nil
	}

	mu.Lock()
	*created = append(*created, item.ID)
	mu.Unlock()
	return nil
}

// LedgerCompletenessExperiment bumps every live item's quantity and checks
// that each change lands in the ledger.
func (e *Engine) LedgerCompletenessExperiment(duration time.Duration) Experiment {
	return Experiment{
		Name:       "ledger-completeness",
		Hypothesis: "Every quantity change is recorded in the item's history",
		SteadyState: []Metric{
			{
				Name:  "ledger_mismatches",
				Query: e.LedgerMismatches,
				Bound: Bound{Cmp: Equal, Limit: 0},
			},
		},
		Inject: []Step{
			{
				Name: "quantity-churn",
				Run: func(ctx context.Context) error {
					items, err := e.client.ListItems(ctx)
					if err != nil {
						return err
					}
					client := e.client.WithActor("chaos-churn")
					for _, item := range items {
						next := item.Qty + 1
						if _, err := client.UpdateItem(ctx, item.ID, clients.ItemFields{Qty: &next}); err != nil {
							return fmt.Errorf("update %s: %w", item.ID, err)
						}
					}
					return nil
				},
			},
		},
		Assertions: []Assertion{
			{
				Metric:  "ledger_mismatches",
				Check:   func(v float64) bool { return v == 0 },
				Message: "Every live item's history must explain its quantity",
			},
		},
		Duration: duration,
	}
}
