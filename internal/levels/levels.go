// Package levels keeps the materialized view of one selection path through an
// inventory tree: level 0 is the root list, and each selected item that has
// container slots opens the next level.
package levels

import (
	"github.com/jask/satchel/internal/inventory"
)

// State is the selection state of one level.
type State int

const (
	Idle     State = iota // nothing selected; no deeper level
	Leaf                  // selected item exposes no slots
	Expanded              // selected item's slots form the next level
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Leaf:
		return "leaf"
	case Expanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// RootSlot names the single slot of level 0.
const RootSlot = ""

// Selection identifies the selected item of a level.
type Selection struct {
	Slot string
	ID   string
}

// Slot is one container slot of a level with its working copy of items.
type Slot struct {
	Name  string
	Path  inventory.Path
	Items []inventory.Item
}

// Level is one materialized depth of the tree.
type Level struct {
	Depth int
	// Owner is the item whose slots this level shows; nil at depth 0.
	Owner     *inventory.Item
	Slots     []Slot
	Selection *Selection
	State     State
}

// Slot returns the named slot of l.
func (l *Level) Slot(name string) (*Slot, bool) {
	for i := range l.Slots {
		if l.Slots[i].Name == name {
			return &l.Slots[i], true
		}
	}
	return nil, false
}

// Item finds an item by id in the named slot's working set.
func (l *Level) Item(slot, id string) (inventory.Item, bool) {
	sl, ok := l.Slot(slot)
	if !ok {
		return inventory.Item{}, false
	}
	for _, it := range sl.Items {
		if it.ID == id {
			return it, true
		}
	}
	return inventory.Item{}, false
}

// Selected returns the selected item, if any.
func (l *Level) Selected() (inventory.Item, bool) {
	if l.Selection == nil {
		return inventory.Item{}, false
	}
	return l.Item(l.Selection.Slot, l.Selection.ID)
}

func (l Level) clone() Level {
	out := l
	if l.Owner != nil {
		o := l.Owner.Clone()
		out.Owner = &o
	}
	if l.Selection != nil {
		sel := *l.Selection
		out.Selection = &sel
	}
	out.Slots = make([]Slot, 0, len(l.Slots))
	for _, s := range l.Slots {
		items := make([]inventory.Item, 0, len(s.Items))
		for _, it := range s.Items {
			items = append(items, it.Clone())
		}
		out.Slots = append(out.Slots, Slot{Name: s.Name, Path: append(inventory.Path(nil), s.Path...), Items: items})
	}
	return out
}

// Materialize returns the levels exposed for a selection chain, one selection
// per level starting at depth 0. The chain is followed until a selection no
// longer resolves or lands on an item without slots.
func Materialize(store *inventory.Store, chain []Selection) []Level {
	levels := []Level{rootLevel(store)}
	for _, sel := range chain {
		cur := &levels[len(levels)-1]
		next, ok := selectInto(store, cur, sel)
		if !ok {
			break
		}
		levels = append(levels, next)
	}
	return levels
}

func rootLevel(store *inventory.Store) Level {
	items, _ := store.Children(nil)
	return Level{
		Depth: 0,
		Slots: []Slot{{Name: RootSlot, Items: items}},
		State: Idle,
	}
}

// selectInto marks sel as selected on cur and returns the next level when the
// selected item exposes slots.
func selectInto(store *inventory.Store, cur *Level, sel Selection) (Level, bool) {
	item, ok := cur.Item(sel.Slot, sel.ID)
	if !ok {
		cur.Selection = nil
		cur.State = Idle
		return Level{}, false
	}
	s := sel
	cur.Selection = &s
	names := store.NodeSlots(item)
	if len(names) == 0 {
		cur.State = Leaf
		return Level{}, false
	}
	cur.State = Expanded

	parent, _ := cur.Slot(sel.Slot)
	owner := item.Clone()
	next := Level{Depth: cur.Depth + 1, Owner: &owner, State: Idle}
	for _, name := range names {
		p := parent.Path.Child(item.Name, name)
		children, ok := store.Children(p)
		if !ok {
			children = []inventory.Item{}
		}
		next.Slots = append(next.Slots, Slot{Name: name, Path: p, Items: children})
	}
	return next, true
}
