package domain

import "encoding/json"

type ItemID string

// OrderLine is one entry in a cart. Name and Price are snapshotted from the
// catalog when the line is first added; later catalog changes do not touch
// lines already in the order.
type OrderLine struct {
	ID    ItemID  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Count int     `json:"count"` // always >= 1 while the line exists
}

// Order is the cart's line sequence, in order of first addition.
// At most one line exists per ItemID.
type Order []OrderLine

func (o Order) Find(id ItemID) int {
	for i, line := range o {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, for snapshots handed across package boundaries.
func (o Order) Clone() Order {
	if o == nil {
		return nil
	}
	out := make(Order, len(o))
	copy(out, o)
	return out
}

// Marshal serializes the order for the key-value store. An empty order
// serializes as "[]" rather than "null" so the stored value round-trips.
func (o Order) Marshal() (string, error) {
	if o == nil {
		o = Order{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func UnmarshalOrder(data string) (Order, error) {
	if data == "" {
		return Order{}, nil
	}
	var o Order
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, err
	}
	if o == nil {
		o = Order{}
	}
	return o, nil
}
