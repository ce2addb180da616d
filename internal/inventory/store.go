// internal/inventory/store.go
package inventory

import (
	"math"

	"github.com/google/uuid"
)

// Store owns the authoritative set of items in insertion order.
// It is not safe for concurrent use; the service serializes access.
type Store struct {
	items map[string]*Item
	order []string
	newID IDGenerator
}

// NewStore creates an empty store. A nil generator falls back to random UUIDs.
func NewStore(newID IDGenerator) *Store {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Store{
		items: make(map[string]*Item),
		order: make([]string, 0),
		newID: newID,
	}
}

// Create validates the input and stores a new item under a fresh identifier.
func (s *Store) Create(in CreateItemInput) (Item, error) {
	if in.Name == nil || *in.Name == "" {
		return Item{}, invalid("name", "is required")
	}
	if in.Qty == nil {
		return Item{}, invalid("qty", "is required")
	}
	if in.Price == nil {
		return Item{}, invalid("price", "is required")
	}
	if err := validatePrice(*in.Price); err != nil {
		return Item{}, err
	}

	item := &Item{
		ID:    s.newID(),
		Name:  *in.Name,
		Qty:   *in.Qty,
		Price: *in.Price,
	}
	if in.Location != nil {
		item.Location = *in.Location
	}

	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return *item, nil
}

// Get returns a copy of the item stored under id.
func (s *Store) Get(id string) (Item, error) {
	item, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return *item, nil
}

// List returns copies of all items in insertion order.
func (s *Store) List() []Item {
	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, *s.items[id])
	}
	return items
}

// Update overwrites the fields present in the input and returns the full record.
func (s *Store) Update(id string, in UpdateItemInput) (Item, error) {
	item, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	if in.Name != nil && *in.Name == "" {
		return Item{}, invalid("name", "must not be empty")
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return Item{}, err
		}
	}

	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Qty != nil {
		item.Qty = *in.Qty
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Location != nil {
		item.Location = *in.Location
	}
	return *item, nil
}

// Delete removes the item stored under id.
func (s *Store) Delete(id string) error {
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of live items.
func (s *Store) Len() int {
	return len(s.items)
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return invalid("price", "must be a finite number")
	}
	return nil
}
