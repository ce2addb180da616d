// internal/inventory/service.go
package inventory

import (
	"context"

	"stockroom/internal/ledger"
)

// Service defines the interface for the inventory service.
type Service interface {
	CreateItem(ctx context.Context, in CreateItemInput, actor string) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context) []Item
	UpdateItem(ctx context.Context, id string, in UpdateItemInput, actor string) (Item, error)
	DeleteItem(ctx context.Context, id, actor string) error
	ItemHistory(ctx context.Context, id string) []ledger.Entry
	AllHistory(ctx context.Context) []ledger.Record
	ItemCount(ctx context.Context) int
}
