package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Item is one physical item instance. Containers maps a container slot name to
// the items held in that slot, in display order.
type Item struct {
	ID          string            `json:"item_id"`
	Name        string            `json:"name"`
	Quantity    int               `json:"quantity"`
	Owner       string            `json:"owner"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	Containers  map[string][]Item `json:"containers"`
}

// Fields holds the scalar (non-container) fields of an item.
type Fields struct {
	Name        string
	Quantity    int
	Owner       string
	Description string
	Location    string
}

// NewID returns a fresh item identifier.
func NewID() string {
	return uuid.NewString()
}

// NewItem builds an empty-containered item from f with a fresh identifier.
func NewItem(f Fields) Item {
	it := Item{ID: NewID(), Containers: map[string][]Item{}}
	f.applyTo(&it)
	return it
}

// Fields returns the scalar fields of it.
func (it Item) Fields() Fields {
	return Fields{
		Name:        it.Name,
		Quantity:    it.Quantity,
		Owner:       it.Owner,
		Description: it.Description,
		Location:    it.Location,
	}
}

// Clone returns a deep copy of it.
func (it Item) Clone() Item {
	out := it
	out.Containers = make(map[string][]Item, len(it.Containers))
	for slot, children := range it.Containers {
		cp := make([]Item, 0, len(children))
		for _, c := range children {
			cp = append(cp, c.Clone())
		}
		out.Containers[slot] = cp
	}
	return out
}

// UnmarshalJSON applies the persisted defaults: quantity 1 when absent, empty
// strings for missing text fields, and an empty containers map.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string            `json:"item_id"`
		Name        string            `json:"name"`
		Quantity    *quantity         `json:"quantity"`
		Owner       string            `json:"owner"`
		Description string            `json:"description"`
		Location    string            `json:"location"`
		Containers  map[string][]Item `json:"containers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item{
		ID:          raw.ID,
		Name:        raw.Name,
		Quantity:    1,
		Owner:       raw.Owner,
		Description: raw.Description,
		Location:    raw.Location,
		Containers:  make(map[string][]Item, len(raw.Containers)),
	}
	if raw.Quantity != nil {
		it.Quantity = int(*raw.Quantity)
	}
	for slot, children := range raw.Containers {
		if children == nil {
			children = []Item{}
		}
		it.Containers[slot] = children
	}
	return nil
}

// quantity accepts a JSON integer, an integral float such as 2.0, or a
// string holding an integer, as hand-edited documents sometimes carry.
type quantity int

func (q *quantity) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if json.Unmarshal(data, &s) != nil {
			return fmt.Errorf("quantity %s: %w", data, ErrInvalidQuantity)
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if v, err := n.Int64(); err == nil {
		*q = quantity(v)
		return nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("quantity %s: %w", data, ErrInvalidQuantity)
	}
	*q = quantity(f)
	return nil
}

func (f Fields) applyTo(it *Item) {
	it.Name = strings.TrimSpace(f.Name)
	it.Quantity = f.Quantity
	it.Owner = f.Owner
	it.Description = f.Description
	it.Location = f.Location
}

func (f Fields) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if f.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}
