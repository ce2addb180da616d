// internal/inventory/implementation.go
package inventory

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stockroom/internal/ledger"
)

// service implements the Service interface.
// A single lock covers the store, the ledger and the metrics so each
// mutation and its audit entry become visible together.
type service struct {
	mu      sync.RWMutex
	store   *Store
	ledger  *ledger.Ledger
	metrics *Metrics
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewService creates a new inventory service instance.
func NewService(store *Store, l *ledger.Ledger, metrics *Metrics, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:   store,
		ledger:  l,
		metrics: metrics,
		tracer:  otel.Tracer("stockroom/inventory"),
		logger:  logger,
	}
	s.metrics.Refresh(s.store.Len())
	return s
}

// CreateItem stores a new item and records its initial quantity.
func (s *service) CreateItem(ctx context.Context, in CreateItemInput, actor string) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.create_item")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.store.Create(in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	s.ledger.Append(ctx, item.ID, ledger.ActionCreate, intPtr(0), intPtr(item.Qty), actor)
	s.metrics.Refresh(s.store.Len())

	span.SetAttributes(attribute.String("item.id", item.ID))
	s.logger.Debug("item created",
		zap.String("id", item.ID),
		zap.Int("qty", item.Qty),
		zap.String("actor", actor),
	)
	return item, nil
}

// GetItem retrieves an item by its ID.
func (s *service) GetItem(ctx context.Context, id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := s.store.Get(id)
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns all items in insertion order.
func (s *service) ListItems(ctx context.Context) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.List()
}

// UpdateItem applies a partial update and records the quantity change.
func (s *service) UpdateItem(ctx context.Context, id string, in UpdateItemInput, actor string) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.update_item",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	beforeQty := existing.Qty

	item, err := s.store.Update(id, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}

	s.ledger.Append(ctx, id, ledger.ActionUpdate, intPtr(beforeQty), intPtr(item.Qty), actor)
	s.metrics.Refresh(s.store.Len())

	s.logger.Debug("item updated",
		zap.String("id", id),
		zap.Int("before_qty", beforeQty),
		zap.Int("after_qty", item.Qty),
		zap.String("actor", actor),
	)
	return item, nil
}

// DeleteItem removes an item; its history is kept.
func (s *service) DeleteItem(ctx context.Context, id, actor string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.delete_item",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	lastQty := existing.Qty

	if err := s.store.Delete(id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete item %s: %w", id, err)
	}

	s.ledger.Append(ctx, id, ledger.ActionDelete, intPtr(lastQty), intPtr(0), actor)
	s.metrics.Refresh(s.store.Len())

	s.logger.Debug("item deleted",
		zap.String("id", id),
		zap.Int("last_qty", lastQty),
		zap.Int("history_len", s.ledger.Len(id)),
		zap.String("actor", actor),
	)
	return nil
}

// ItemHistory returns the audit entries for one item, deleted or not.
func (s *service) ItemHistory(ctx context.Context, id string) []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Get(ctx, id)
}

// AllHistory returns every audit entry grouped by item.
func (s *service) AllHistory(ctx context.Context) []ledger.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.GetAll(ctx)
}

// ItemCount returns the current item count gauge.
func (s *service) ItemCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.ItemCount()
}

func intPtr(v int) *int {
	return &v
}
