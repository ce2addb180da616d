package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"stockroom/internal/inventory"
	"stockroom/internal/ledger"
)

func newTestServer(t *testing.T) *InventoryClient {
	t.Helper()

	metrics, err := inventory.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	svc := inventory.NewService(inventory.NewStore(nil), ledger.New(), metrics, nil)

	r := chi.NewRouter()
	inventory.NewHandler(svc, nil).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return NewInventoryClient(server.URL)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t).WithActor("client-test")

	name, qty, price := "Widget", 10, 2.5
	created, err := client.CreateItem(ctx, ItemFields{Name: &name, Qty: &qty, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "", created.Location)

	zero := 0
	updated, err := client.UpdateItem(ctx, created.ID, ItemFields{Qty: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Qty)
	assert.Equal(t, 2.5, updated.Price)

	got, err := client.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	items, err := client.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.ItemsCount)

	require.NoError(t, client.DeleteItem(ctx, created.ID))

	entries, err := client.ItemHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, -10, *entries[1].Delta)
	for _, e := range entries {
		assert.Equal(t, "client-test", e.Actor)
	}

	records, err := client.AllHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, created.ID, records[0].ID)
}

func TestClientMapsErrors(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t)

	_, err := client.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	assert.ErrorIs(t, client.DeleteItem(ctx, "missing"), inventory.ErrNotFound)

	name := "no-qty"
	_, err = client.CreateItem(ctx, ItemFields{Name: &name})
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
}

func TestClientUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(server.Close)

	_, err := NewInventoryClient(server.URL).WithHTTPClient(server.Client()).ListItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "418")
}
