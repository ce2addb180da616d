// internal/inventory/domain.go
package inventory

// Item is a single inventory record.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"price"`
	Location string  `json:"location"`
}

// CreateItemInput carries the fields of a new item. Nil pointers mark
// required fields the caller omitted.
type CreateItemInput struct {
	Name     *string
	Qty      *int
	Price    *float64
	Location *string
}

// UpdateItemInput carries a partial update. Only non-nil fields are applied,
// so a field set to its zero value is distinct from an omitted one.
type UpdateItemInput struct {
	Name     *string
	Qty      *int
	Price    *float64
	Location *string
}

// IDGenerator allocates identifiers for new items. Every call must return a
// value never returned before.
type IDGenerator func() string
