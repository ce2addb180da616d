package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"stockroom/internal/ledger"
)

func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestService(t testing.TB) Service {
	t.Helper()

	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	return NewService(
		NewStore(sequentialIDs()),
		ledger.New(ledger.WithClock(tickingClock())),
		metrics,
		nil,
	)
}

func TestWidgetLifecycle(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	svc := NewService(NewStore(sequentialIDs()), ledger.New(ledger.WithClock(tickingClock())), metrics, zaptest.NewLogger(t))

	created, err := svc.CreateItem(ctx, widget(), "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 10, created.Qty)
	assert.Equal(t, 2.5, created.Price)
	assert.Equal(t, "", created.Location)
	assert.Equal(t, 1, svc.ItemCount(ctx))

	updated, err := svc.UpdateItem(ctx, created.ID, UpdateItemInput{Qty: intPtr(7)}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Qty)
	assert.Equal(t, 2.5, updated.Price)

	history := svc.ItemHistory(ctx, created.ID)
	require.Len(t, history, 2)
	assert.Equal(t, ledger.ActionUpdate, history[1].Action)
	assert.Equal(t, 10, *history[1].BeforeQty)
	assert.Equal(t, 7, *history[1].AfterQty)
	assert.Equal(t, -3, *history[1].Delta)
	assert.Equal(t, "bob", history[1].Actor)

	countBefore := svc.ItemCount(ctx)
	require.NoError(t, svc.DeleteItem(ctx, created.ID, ""))

	_, err = svc.GetItem(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	history = svc.ItemHistory(ctx, created.ID)
	require.Len(t, history, 3)
	last := history[2]
	assert.Equal(t, ledger.ActionDelete, last.Action)
	assert.Equal(t, 7, *last.BeforeQty)
	assert.Equal(t, 0, *last.AfterQty)
	assert.Equal(t, -7, *last.Delta)
	assert.Equal(t, ledger.DefaultActor, last.Actor)
	assert.Equal(t, countBefore-1, svc.ItemCount(ctx))
}

func TestCreateRecordsInitialQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	item, err := svc.CreateItem(ctx, widget(), "alice")
	require.NoError(t, err)

	history := svc.ItemHistory(ctx, item.ID)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.ActionCreate, history[0].Action)
	assert.Equal(t, 0, *history[0].BeforeQty)
	assert.Equal(t, 10, *history[0].AfterQty)
	assert.Equal(t, 10, *history[0].Delta)
	assert.Equal(t, "alice", history[0].Actor)
}

func TestFailedMutationsLeaveNoTrace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateItem(ctx, CreateItemInput{Name: strPtr("x")}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateItem(ctx, "missing", UpdateItemInput{Qty: intPtr(1)}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeleteItem(ctx, "missing", ""), ErrNotFound)

	item, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{Name: strPtr("")}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, svc.ItemHistory(ctx, "missing"))
	assert.Len(t, svc.ItemHistory(ctx, item.ID), 1)
	assert.Len(t, svc.AllHistory(ctx), 1)
	assert.Equal(t, 1, svc.ItemCount(ctx))
}

func TestPartialUpdatePreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	item, err := svc.CreateItem(ctx, CreateItemInput{
		Name: strPtr("Bolt"), Qty: intPtr(3), Price: floatPtr(0.25), Location: strPtr("Bin 4"),
	}, "")
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{Price: floatPtr(0.3)}, "")
	require.NoError(t, err)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, Item{ID: item.ID, Name: "Bolt", Qty: 3, Price: 0.3, Location: "Bin 4"}, got)

	history := svc.ItemHistory(ctx, item.ID)
	require.Len(t, history, 2)
	assert.Equal(t, 0, *history[1].Delta)
}

func TestAllHistoryEmpty(t *testing.T) {
	svc := newTestService(t)
	assert.Empty(t, svc.AllHistory(context.Background()))
}

func TestAllHistoryGroupsByItem(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)
	b, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, a.ID, ""))

	all := svc.AllHistory(ctx)
	require.Len(t, all, 3)

	// b was created before a was deleted; a time-sorted merge would interleave them.
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, ledger.ActionCreate, all[0].Action)
	assert.Equal(t, a.ID, all[1].ID)
	assert.Equal(t, ledger.ActionDelete, all[1].Action)
	assert.Equal(t, b.ID, all[2].ID)
	assert.Equal(t, ledger.ActionCreate, all[2].Action)
	assert.True(t, all[2].Timestamp.Before(all[1].Timestamp))
}

func TestIdentifiersAreNotReused(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, first.ID, ""))

	second, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, svc.ItemHistory(ctx, first.ID), 2)
	assert.Len(t, svc.ItemHistory(ctx, second.ID), 1)
}

func TestConcurrentMutationsStayConsistent(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	svc := NewService(NewStore(nil), ledger.New(), metrics, nil)

	item, err := svc.CreateItem(ctx, widget(), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := svc.CreateItem(ctx, widget(), "")
			if err != nil {
				return
			}
			svc.UpdateItem(ctx, item.ID, UpdateItemInput{Qty: intPtr(i)}, "")
			if i%2 == 0 {
				svc.DeleteItem(ctx, created.ID, "")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(svc.ListItems(ctx)), svc.ItemCount(ctx))
	assert.Equal(t, 26, svc.ItemCount(ctx))

	history := svc.ItemHistory(ctx, item.ID)
	require.Len(t, history, 51)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, *history[i-1].AfterQty, *history[i].BeforeQty)
	}
	assert.Len(t, svc.AllHistory(ctx), 1+50+50+25)
}
