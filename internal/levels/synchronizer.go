package levels

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jask/satchel/internal/inventory"
)

var (
	ErrNoLevel      = errors.New("levels: no such level")
	ErrUnknownSlot  = errors.New("levels: no such slot at level")
	ErrUnknownField = errors.New("levels: unknown field")
)

// Committer persists the store after a mutation.
type Committer interface {
	Commit(store *inventory.Store) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(store *inventory.Store) error

func (f CommitFunc) Commit(store *inventory.Store) error { return f(store) }

// EventKind classifies a state transition.
type EventKind int

const (
	Materialized EventKind = iota + 1
	TornDown
	Selected
	Deselected
	Changed
)

func (k EventKind) String() string {
	switch k {
	case Materialized:
		return "materialized"
	case TornDown:
		return "torn_down"
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is emitted synchronously for every transition.
type Event struct {
	Kind   EventKind
	Depth  int
	ItemID string
}

// Field names an editable scalar field.
type Field string

const (
	FieldName        Field = "name"
	FieldQuantity    Field = "quantity"
	FieldOwner       Field = "owner"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldName, FieldQuantity, FieldOwner, FieldDescription, FieldLocation}

// Synchronizer owns the materialized levels for one store. Selections arrive
// one at a time; every mutation is written to the store and committed before
// the call returns.
type Synchronizer struct {
	store  *inventory.Store
	commit Committer
	logger *slog.Logger
	levels []Level
	subs   []func(Event)
}

// New materializes level 0 of store. commit may be nil.
func New(store *inventory.Store, commit Committer, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		store:  store,
		commit: commit,
		logger: logger,
		levels: []Level{rootLevel(store)},
	}
}

// Store returns the store the synchronizer commits to.
func (s *Synchronizer) Store() *inventory.Store { return s.store }

// Subscribe registers fn for every subsequent event.
func (s *Synchronizer) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

// Levels returns a copy of the materialized levels, shallowest first.
func (s *Synchronizer) Levels() []Level {
	out := make([]Level, 0, len(s.levels))
	for _, l := range s.levels {
		out = append(out, l.clone())
	}
	return out
}

// Level returns a copy of the level at depth.
func (s *Synchronizer) Level(depth int) (Level, bool) {
	if depth < 0 || depth >= len(s.levels) {
		return Level{}, false
	}
	return s.levels[depth].clone(), true
}

// Depth returns the number of materialized levels.
func (s *Synchronizer) Depth() int { return len(s.levels) }

// Chain returns the live selection path, one entry per level with a selection.
func (s *Synchronizer) Chain() []Selection {
	var out []Selection
	for _, l := range s.levels {
		if l.Selection == nil {
			break
		}
		out = append(out, *l.Selection)
	}
	return out
}

// Selected returns the item selected at depth, if any.
func (s *Synchronizer) Selected(depth int) (inventory.Item, bool) {
	if depth < 0 || depth >= len(s.levels) {
		return inventory.Item{}, false
	}
	return s.levels[depth].Selected()
}

// Select makes the item id in slot the selection at depth. Re-selecting the
// current selection does nothing. Otherwise every deeper level is torn down
// before the selected item's slots are materialized.
func (s *Synchronizer) Select(depth int, slot, id string) error {
	cur, err := s.level(depth)
	if err != nil {
		return err
	}
	if sel := cur.Selection; sel != nil && sel.Slot == slot && sel.ID == id {
		return nil
	}
	if _, ok := cur.Item(slot, id); !ok {
		return fmt.Errorf("select %s at level %d: %w", id, depth, inventory.ErrItemNotFound)
	}
	s.teardown(depth + 1)
	next, expanded := selectInto(s.store, cur, Selection{Slot: slot, ID: id})
	s.emit(Event{Kind: Selected, Depth: depth, ItemID: id})
	if expanded {
		s.levels = append(s.levels, next)
		s.emit(Event{Kind: Materialized, Depth: next.Depth})
	}
	return nil
}

// Deselect clears the selection at depth and tears down every deeper level.
func (s *Synchronizer) Deselect(depth int) error {
	cur, err := s.level(depth)
	if err != nil {
		return err
	}
	if cur.Selection == nil {
		return nil
	}
	s.teardown(depth + 1)
	id := cur.Selection.ID
	cur.Selection = nil
	cur.State = Idle
	s.emit(Event{Kind: Deselected, Depth: depth, ItemID: id})
	return nil
}

// Add creates an item from f in slot at depth.
func (s *Synchronizer) Add(depth int, slot string, f inventory.Fields) (inventory.Item, error) {
	sl, err := s.slot(depth, slot)
	if err != nil {
		return inventory.Item{}, err
	}
	it, err := s.store.AddChild(sl.Path, inventory.Item{
		Name:        f.Name,
		Quantity:    f.Quantity,
		Owner:       f.Owner,
		Description: f.Description,
		Location:    f.Location,
	})
	if err != nil {
		return inventory.Item{}, err
	}
	return it, s.afterMutation(depth, it.ID)
}

// Remove deletes the item id, and everything inside it, from slot at depth.
// Removing the selected item returns its level to Idle.
func (s *Synchronizer) Remove(depth int, slot, id string) (inventory.Item, error) {
	sl, err := s.slot(depth, slot)
	if err != nil {
		return inventory.Item{}, err
	}
	it, err := s.store.RemoveChild(sl.Path, id)
	if err != nil {
		return inventory.Item{}, err
	}
	return it, s.afterMutation(depth, id)
}

// Update replaces all scalar fields of item id in slot at depth.
func (s *Synchronizer) Update(depth int, slot, id string, f inventory.Fields) (inventory.Item, error) {
	sl, err := s.slot(depth, slot)
	if err != nil {
		return inventory.Item{}, err
	}
	it, err := s.store.UpdateNode(sl.Path, id, f)
	if err != nil {
		return inventory.Item{}, err
	}
	return it, s.afterMutation(depth, id)
}

// Edit sets one field of item id from its text form and commits it.
func (s *Synchronizer) Edit(depth int, slot, id string, field Field, value string) (inventory.Item, error) {
	cur, err := s.level(depth)
	if err != nil {
		return inventory.Item{}, err
	}
	it, ok := cur.Item(slot, id)
	if !ok {
		return inventory.Item{}, fmt.Errorf("edit %s at level %d: %w", id, depth, inventory.ErrItemNotFound)
	}
	f := it.Fields()
	switch field {
	case FieldName:
		f.Name = value
	case FieldQuantity:
		q, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return inventory.Item{}, fmt.Errorf("edit quantity %q: %w", value, inventory.ErrInvalidQuantity)
		}
		f.Quantity = q
	case FieldOwner:
		f.Owner = value
	case FieldDescription:
		f.Description = value
	case FieldLocation:
		f.Location = value
	default:
		return inventory.Item{}, fmt.Errorf("edit %q: %w", field, ErrUnknownField)
	}
	return s.Update(depth, slot, id, f)
}

// Refresh rebuilds every level from the store, keeping as much of the
// selection chain as still resolves.
func (s *Synchronizer) Refresh() {
	s.resync()
}

func (s *Synchronizer) afterMutation(depth int, id string) error {
	s.resync()
	s.emit(Event{Kind: Changed, Depth: depth, ItemID: id})
	if s.commit == nil {
		return nil
	}
	if err := s.commit.Commit(s.store); err != nil {
		s.logger.Error("commit inventory", "depth", depth, "item_id", id, "err", err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// resync recomputes the levels for the current chain and reports levels that
// collapsed or appeared.
func (s *Synchronizer) resync() {
	old := s.levels
	next := Materialize(s.store, s.Chain())
	for d := len(old) - 1; d >= len(next); d-- {
		s.levels = old[:d]
		s.emit(Event{Kind: TornDown, Depth: d})
	}
	for d := len(old); d < len(next); d++ {
		s.levels = next[:d+1]
		s.emit(Event{Kind: Materialized, Depth: d})
	}
	s.levels = next
}

// teardown removes every level at or below depth, deepest first.
func (s *Synchronizer) teardown(depth int) {
	for d := len(s.levels) - 1; d >= depth && d > 0; d-- {
		s.levels = s.levels[:d]
		s.emit(Event{Kind: TornDown, Depth: d})
	}
}

func (s *Synchronizer) level(depth int) (*Level, error) {
	if depth < 0 || depth >= len(s.levels) {
		return nil, fmt.Errorf("level %d: %w", depth, ErrNoLevel)
	}
	return &s.levels[depth], nil
}

func (s *Synchronizer) slot(depth int, name string) (*Slot, error) {
	l, err := s.level(depth)
	if err != nil {
		return nil, err
	}
	sl, ok := l.Slot(name)
	if !ok {
		return nil, fmt.Errorf("slot %q at level %d: %w", name, depth, ErrUnknownSlot)
	}
	return sl, nil
}

func (s *Synchronizer) emit(e Event) {
	for _, fn := range s.subs {
		fn(e)
	}
}
