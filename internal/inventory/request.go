// internal/inventory/request.go
package inventory

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// itemRequest is the wire form of create and update bodies. Quantity and
// price accept either a JSON number or a numeric string.
type itemRequest struct {
	Name     *string         `json:"name"`
	Qty      json.RawMessage `json:"qty"`
	Price    json.RawMessage `json:"price"`
	Location *string         `json:"location"`
}

func (r itemRequest) createInput() (CreateItemInput, error) {
	qty, err := parseQty(r.Qty)
	if err != nil {
		return CreateItemInput{}, err
	}
	price, err := parsePrice(r.Price)
	if err != nil {
		return CreateItemInput{}, err
	}
	return CreateItemInput{Name: r.Name, Qty: qty, Price: price, Location: r.Location}, nil
}

func (r itemRequest) updateInput() (UpdateItemInput, error) {
	qty, err := parseQty(r.Qty)
	if err != nil {
		return UpdateItemInput{}, err
	}
	price, err := parsePrice(r.Price)
	if err != nil {
		return UpdateItemInput{}, err
	}
	return UpdateItemInput{Name: r.Name, Qty: qty, Price: price, Location: r.Location}, nil
}

// numericText extracts the literal from a number or string token.
// ok is false when the field was omitted or null.
func numericText(raw json.RawMessage) (text string, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return strings.TrimSpace(s), true, nil
	}
	return string(raw), true, nil
}

func parseQty(raw json.RawMessage) (*int, error) {
	text, ok, err := numericText(raw)
	if err != nil {
		return nil, invalid("qty", "must be an integer")
	}
	if !ok {
		return nil, nil
	}
	if v, err := strconv.Atoi(text); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return nil, invalid("qty", "must be an integer")
	}
	v := int(f)
	return &v, nil
}

func parsePrice(raw json.RawMessage) (*float64, error) {
	text, ok, err := numericText(raw)
	if err != nil {
		return nil, invalid("price", "must be a number")
	}
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid("price", "must be a number")
	}
	return &f, nil
}
