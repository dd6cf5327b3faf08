package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

var (
	ErrPathNotFound    = errors.New("inventory: path not found")
	ErrItemNotFound    = errors.New("inventory: item not found")
	ErrCycle           = errors.New("inventory: item would contain its own ancestor")
	ErrEmptyName       = errors.New("inventory: item name required")
	ErrInvalidQuantity = errors.New("inventory: quantity must not be negative")
)

// SlotSource reports the container slots an item type exposes.
type SlotSource interface {
	Slots(name string) ([]string, bool)
}

type node struct {
	item  Item // scalar fields only
	slots map[string][]*node
}

// Store owns one inventory tree. All mutation goes through its methods and all
// reads hand out copies.
type Store struct {
	roots  []*node
	source SlotSource
	logger *slog.Logger
	newID  func() string

	byID  map[string]*node
	paths map[string]*node
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and mutation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces NewID for items created by the store.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New builds a store holding a copy of items. source may be nil.
func New(items []Item, source SlotSource, opts ...Option) *Store {
	s := &Store{
		source: source,
		logger: slog.Default(),
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.roots = make([]*node, 0, len(items))
	for _, it := range items {
		s.roots = append(s.roots, fromItem(it))
	}
	s.reindex(true)
	return s
}

// Deserialize decodes a JSON item list. A JSON null yields an empty tree.
func Deserialize(data []byte, source SlotSource, opts ...Option) (*Store, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	return New(items, source, opts...), nil
}

// Serialize encodes the tree. Items without an id are dropped together with
// their contents.
func (s *Store) Serialize() ([]byte, error) {
	skipped := 0
	items := exportable(s.roots, &skipped)
	if skipped > 0 {
		s.logger.Warn("skipping inventory items without item_id", "count", skipped)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode inventory: %w", err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler via Serialize.
func (s *Store) MarshalJSON() ([]byte, error) {
	return s.Serialize()
}

// Items returns a deep copy of the root item list.
func (s *Store) Items() []Item {
	return toItems(s.roots)
}

// Len returns the number of items in the whole tree.
func (s *Store) Len() int {
	n := 0
	walk(s.roots, func(*node) { n++ })
	return n
}

// ContainerSlots returns the slot names an item type exposes. Catalog entries
// win; names unknown to the catalog fall back to the sorted union of slot keys
// found on items of that name already in the tree.
func (s *Store) ContainerSlots(name string) []string {
	if s.source != nil {
		if slots, ok := s.source.Slots(name); ok {
			return append([]string(nil), slots...)
		}
	}
	seen := map[string]struct{}{}
	walk(s.roots, func(n *node) {
		if n.item.Name != name {
			return
		}
		for slot := range n.slots {
			seen[slot] = struct{}{}
		}
	})
	out := make([]string, 0, len(seen))
	for slot := range seen {
		out = append(out, slot)
	}
	sort.Strings(out)
	return out
}

// NodeSlots returns ContainerSlots(it.Name) followed by any of the item's own
// slot keys that still hold data but are not listed (e.g. after a rename).
func (s *Store) NodeSlots(it Item) []string {
	out := s.ContainerSlots(it.Name)
	var extra []string
	for slot, children := range it.Containers {
		if len(children) == 0 || slices.Contains(out, slot) {
			continue
		}
		extra = append(extra, slot)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// FindNode returns the item whose slot the last hop of p enters.
func (s *Store) FindNode(p Path) (Item, bool) {
	if len(p) == 0 {
		return Item{}, false
	}
	owner, ok := s.resolve(p)
	if !ok {
		return Item{}, false
	}
	return toItem(owner), true
}

// Children returns copies of the items in the slot p lands in. The empty path
// returns the root list. A resolvable path whose slot holds nothing yet
// returns an empty list.
func (s *Store) Children(p Path) ([]Item, bool) {
	owner, ok := s.resolve(p)
	if !ok {
		return nil, false
	}
	return toItems(s.list(owner, p.Slot())), true
}

// Get looks an item up by id anywhere in the tree.
func (s *Store) Get(id string) (Item, bool) {
	n, ok := s.byID[id]
	if !ok {
		return Item{}, false
	}
	return toItem(n), true
}

// AddChild appends a copy of it to the slot p lands in, creating the slot if
// needed, and returns the stored copy. Missing or colliding ids anywhere in
// the added subtree are replaced with fresh ones.
func (s *Store) AddChild(p Path, it Item) (Item, error) {
	if err := it.Fields().validate(); err != nil {
		return Item{}, err
	}
	owner, ok := s.resolve(p)
	if !ok {
		s.logger.Warn("add: unresolved path", "path", p.String())
		return Item{}, fmt.Errorf("add %q at %s: %w", it.Name, p, ErrPathNotFound)
	}
	ancestors := s.ancestorIDs(p)
	n := fromItem(it)
	var cycle bool
	seen := map[string]struct{}{}
	walk([]*node{n}, func(c *node) {
		if _, ok := ancestors[c.item.ID]; ok && c.item.ID != "" {
			cycle = true
		}
	})
	if cycle {
		return Item{}, fmt.Errorf("add %q at %s: %w", it.Name, p, ErrCycle)
	}
	walk([]*node{n}, func(c *node) {
		_, dup := seen[c.item.ID]
		_, taken := s.byID[c.item.ID]
		switch {
		case c.item.ID == "":
			c.item.ID = s.newID()
		case dup || taken:
			fresh := s.newID()
			s.logger.Warn("add: reassigning duplicate item_id", "item_id", c.item.ID, "new_item_id", fresh)
			c.item.ID = fresh
		}
		seen[c.item.ID] = struct{}{}
	})

	slot := p.Slot()
	if owner != nil && s.source != nil {
		if known, ok := s.source.Slots(owner.item.Name); ok && !slices.Contains(known, slot) {
			s.logger.Debug("add: slot not defined for item type", "item", owner.item.Name, "slot", slot)
		}
	}
	s.setList(owner, slot, append(s.list(owner, slot), n))
	walk([]*node{n}, func(c *node) { s.byID[c.item.ID] = c })
	s.paths = map[string]*node{}
	return toItem(n), nil
}

// RemoveChild deletes the first item with the given id from the slot p lands
// in, together with its contents, and returns the removed item.
func (s *Store) RemoveChild(p Path, id string) (Item, error) {
	owner, ok := s.resolve(p)
	if !ok {
		s.logger.Warn("remove: unresolved path", "path", p.String())
		return Item{}, fmt.Errorf("remove %s at %s: %w", id, p, ErrPathNotFound)
	}
	list := s.list(owner, p.Slot())
	idx := indexOf(list, id)
	if idx < 0 {
		return Item{}, fmt.Errorf("remove %s at %s: %w", id, p, ErrItemNotFound)
	}
	removed := list[idx]
	s.setList(owner, p.Slot(), slices.Delete(list, idx, idx+1))
	s.reindex(false)
	return toItem(removed), nil
}

// UpdateNode replaces the scalar fields of the item with the given id in the
// slot p lands in. Its contents are kept as they are, including slots the new
// name's catalog entry does not define.
func (s *Store) UpdateNode(p Path, id string, f Fields) (Item, error) {
	if err := f.validate(); err != nil {
		return Item{}, err
	}
	owner, ok := s.resolve(p)
	if !ok {
		s.logger.Warn("update: unresolved path", "path", p.String())
		return Item{}, fmt.Errorf("update %s at %s: %w", id, p, ErrPathNotFound)
	}
	list := s.list(owner, p.Slot())
	idx := indexOf(list, id)
	if idx < 0 {
		return Item{}, fmt.Errorf("update %s at %s: %w", id, p, ErrItemNotFound)
	}
	f.applyTo(&list[idx].item)
	s.paths = map[string]*node{}
	return toItem(list[idx]), nil
}

func (s *Store) resolve(p Path) (*node, bool) {
	if len(p) == 0 {
		return nil, true
	}
	key := p.key()
	if n, ok := s.paths[key]; ok {
		return n, true
	}
	level := s.roots
	var owner *node
	for i, hop := range p {
		owner = firstNamed(level, hop.Item)
		if owner == nil {
			return nil, false
		}
		if i < len(p)-1 {
			level = owner.slots[hop.Slot]
		}
	}
	s.paths[key] = owner
	return owner, true
}

// ancestorIDs collects the ids of every item the path passes through.
func (s *Store) ancestorIDs(p Path) map[string]struct{} {
	out := map[string]struct{}{}
	level := s.roots
	for _, hop := range p {
		owner := firstNamed(level, hop.Item)
		if owner == nil {
			break
		}
		out[owner.item.ID] = struct{}{}
		level = owner.slots[hop.Slot]
	}
	return out
}

func (s *Store) list(owner *node, slot string) []*node {
	if owner == nil {
		return s.roots
	}
	return owner.slots[slot]
}

func (s *Store) setList(owner *node, slot string, list []*node) {
	if owner == nil {
		s.roots = list
		return
	}
	if owner.slots == nil {
		owner.slots = map[string][]*node{}
	}
	owner.slots[slot] = list
}

// reindex rebuilds the id index. The first occurrence of an id wins.
func (s *Store) reindex(logDuplicates bool) {
	s.byID = map[string]*node{}
	s.paths = map[string]*node{}
	var dups, missing int
	walk(s.roots, func(n *node) {
		if n.item.ID == "" {
			missing++
			return
		}
		if _, ok := s.byID[n.item.ID]; ok {
			dups++
			if logDuplicates {
				s.logger.Warn("duplicate item_id in inventory", "item_id", n.item.ID, "name", n.item.Name)
			}
			return
		}
		s.byID[n.item.ID] = n
	})
	if logDuplicates && missing > 0 {
		s.logger.Warn("inventory items without item_id", "count", missing)
	}
}

func firstNamed(list []*node, name string) *node {
	for _, n := range list {
		if n.item.Name == name {
			return n
		}
	}
	return nil
}

func indexOf(list []*node, id string) int {
	if id == "" {
		return -1
	}
	for i, n := range list {
		if n.item.ID == id {
			return i
		}
	}
	return -1
}

func walk(list []*node, fn func(*node)) {
	for _, n := range list {
		fn(n)
		for _, children := range n.slots {
			walk(children, fn)
		}
	}
}

func fromItem(it Item) *node {
	n := &node{item: it, slots: make(map[string][]*node, len(it.Containers))}
	n.item.Containers = nil
	if n.item.Quantity < 0 {
		n.item.Quantity = 0
	}
	for slot, children := range it.Containers {
		list := make([]*node, 0, len(children))
		for _, c := range children {
			list = append(list, fromItem(c))
		}
		n.slots[slot] = list
	}
	return n
}

func toItem(n *node) Item {
	it := n.item
	it.Containers = make(map[string][]Item, len(n.slots))
	for slot, children := range n.slots {
		it.Containers[slot] = toItems(children)
	}
	return it
}

func toItems(list []*node) []Item {
	out := make([]Item, 0, len(list))
	for _, n := range list {
		out = append(out, toItem(n))
	}
	return out
}

func exportable(list []*node, skipped *int) []Item {
	out := make([]Item, 0, len(list))
	for _, n := range list {
		if n.item.ID == "" {
			*skipped++
			continue
		}
		it := n.item
		it.Containers = make(map[string][]Item, len(n.slots))
		for slot, children := range n.slots {
			it.Containers[slot] = exportable(children, skipped)
		}
		out = append(out, it)
	}
	return out
}
