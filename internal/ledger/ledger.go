// internal/ledger/ledger.go
package ledger

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Action names the kind of mutation an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// DefaultActor is recorded when a mutation carries no caller identity.
const DefaultActor = "system"

// Entry is one immutable audit record of a quantity change.
// A nil quantity means the value was unknown at the time of the mutation.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Action    Action    `json:"action"`
	BeforeQty *int      `json:"beforeQty,omitempty"`
	AfterQty  *int      `json:"afterQty,omitempty"`
	Delta     *int      `json:"delta,omitempty"`
	Actor     string    `json:"by"`
}

// Record pairs an entry with the item stream it belongs to.
type Record struct {
	ID string `json:"id"`
	Entry
}

// Ledger is an append-only, per-item audit log.
//
// Streams are kept in the order of their first append and are never removed,
// so history outlives the records it describes.
type Ledger struct {
	mu      sync.RWMutex
	streams map[string][]Entry
	order   []string
	now     func() time.Time
	tracer  trace.Tracer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		streams: make(map[string][]Entry),
		order:   make([]string, 0),
		now:     time.Now,
		tracer:  otel.Tracer("stockroom/ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records a mutation for id and returns the stored entry.
func (l *Ledger) Append(ctx context.Context, id string, action Action, beforeQty, afterQty *int, actor string) Entry {
	_, span := l.tracer.Start(ctx, "ledger.append",
		trace.WithAttributes(
			attribute.String("item.id", id),
			attribute.String("ledger.action", string(action)),
		),
	)
	defer span.End()

	if actor == "" {
		actor = DefaultActor
	}

	entry := Entry{
		Timestamp: l.now().UTC(),
		Action:    action,
		BeforeQty: copyQty(beforeQty),
		AfterQty:  copyQty(afterQty),
		Actor:     actor,
	}
	if beforeQty != nil && afterQty != nil {
		delta := *afterQty - *beforeQty
		entry.Delta = &delta
	}

	l.mu.Lock()
	stream, exists := l.streams[id]
	if !exists {
		l.order = append(l.order, id)
	}
	l.streams[id] = append(stream, entry)
	version := len(l.streams[id])
	l.mu.Unlock()

	span.SetAttributes(attribute.Int("stream.version", version))
	return cloneEntry(entry)
}

// Get returns the entries recorded for id in chronological order.
// It returns an empty slice when nothing was recorded.
func (l *Ledger) Get(ctx context.Context, id string) []Entry {
	_, span := l.tracer.Start(ctx, "ledger.get",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	l.mu.RLock()
	defer l.mu.RUnlock()

	stream := l.streams[id]
	entries := make([]Entry, 0, len(stream))
	for _, entry := range stream {
		entries = append(entries, cloneEntry(entry))
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries
}

// GetAll flattens every stream into records. Streams appear in the order of
// their first append, each followed by its own entries; the result is not a
// global chronological merge.
func (l *Ledger) GetAll(ctx context.Context) []Record {
	_, span := l.tracer.Start(ctx, "ledger.get_all")
	defer span.End()

	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]Record, 0)
	for _, id := range l.order {
		for _, entry := range l.streams[id] {
			records = append(records, Record{ID: id, Entry: cloneEntry(entry)})
		}
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(records)))
	return records
}

// Len returns the number of entries recorded for id.
func (l *Ledger) Len(id string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.streams[id])
}

// cloneEntry copies e so callers never share quantity storage with the ledger.
func cloneEntry(e Entry) Entry {
	e.BeforeQty = copyQty(e.BeforeQty)
	e.AfterQty = copyQty(e.AfterQty)
	e.Delta = copyQty(e.Delta)
	return e
}

func copyQty(q *int) *int {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
