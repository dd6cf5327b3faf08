package inventory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type slotMap map[string][]string

func (m slotMap) Slots(name string) ([]string, bool) {
	s, ok := m[name]
	return s, ok
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func bagStore(t *testing.T) *Store {
	t.Helper()
	bag := Item{ID: "bag", Name: "Bag", Quantity: 1, Containers: map[string][]Item{"Inside": {}}}
	return New([]Item{bag}, slotMap{"Bag": {"Inside"}}, WithIDGenerator(sequentialIDs()))
}

func TestAddFindRemoveCoinInBag(t *testing.T) {
	s := bagStore(t)
	inside := Path{{Item: "Bag", Slot: "Inside"}}

	coin, err := s.AddChild(inside, Item{Name: "Coin", Quantity: 5})
	require.NoError(t, err)
	require.NotEmpty(t, coin.ID)

	children, ok := s.Children(inside)
	require.True(t, ok)
	require.Len(t, children, 1)
	require.Equal(t, "Coin", children[0].Name)
	require.Equal(t, 5, children[0].Quantity)

	bag, ok := s.FindNode(inside)
	require.True(t, ok)
	require.Equal(t, "Bag", bag.Name)
	require.Len(t, bag.Containers["Inside"], 1)

	removed, err := s.RemoveChild(inside, coin.ID)
	require.NoError(t, err)
	require.Equal(t, coin.ID, removed.ID)

	children, ok = s.Children(inside)
	require.True(t, ok)
	require.Empty(t, children)
}

func TestAddRemoveRestoresSlot(t *testing.T) {
	s := bagStore(t)
	inside := Path{{Item: "Bag", Slot: "Inside"}}
	_, err := s.AddChild(inside, Item{Name: "Note", Quantity: 1})
	require.NoError(t, err)
	before := s.Items()

	added, err := s.AddChild(inside, Item{Name: "Key", Quantity: 1})
	require.NoError(t, err)
	_, err = s.RemoveChild(inside, added.ID)
	require.NoError(t, err)

	require.Equal(t, before, s.Items())
}

func TestAddRemoveInNewSlotLeavesEmptyKey(t *testing.T) {
	s := bagStore(t)
	pocket := Path{{Item: "Bag", Slot: "Pocket"}}
	before, ok := s.Children(pocket)
	require.True(t, ok)
	require.Empty(t, before)

	pin, err := s.AddChild(pocket, Item{Name: "Pin", Quantity: 1})
	require.NoError(t, err)
	_, err = s.RemoveChild(pocket, pin.ID)
	require.NoError(t, err)

	after, ok := s.Children(pocket)
	require.True(t, ok)
	require.Equal(t, before, after)

	// The slot created by the add stays behind, empty.
	data, err := s.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, `[{"item_id":"bag","name":"Bag","quantity":1,"owner":"","description":"","location":"","containers":{"Inside":[],"Pocket":[]}}]`, string(data))
	require.Equal(t, []string{"Inside"}, s.NodeSlots(mustGet(t, s, "bag")))
}

func mustGet(t *testing.T, s *Store, id string) Item {
	t.Helper()
	it, ok := s.Get(id)
	require.True(t, ok, id)
	return it
}

func TestAddChildCreatesMissingSlot(t *testing.T) {
	s := bagStore(t)
	pocket := Path{{Item: "Bag", Slot: "Pocket"}}
	_, err := s.AddChild(pocket, Item{Name: "Pin", Quantity: 2})
	require.NoError(t, err)

	bag, ok := s.Get("bag")
	require.True(t, ok)
	require.Len(t, bag.Containers["Pocket"], 1)
}

func TestAddChildAtRoot(t *testing.T) {
	s := New(nil, nil)
	it, err := s.AddChild(nil, Item{Name: "Lantern", Quantity: 1})
	require.NoError(t, err)
	roots, ok := s.Children(nil)
	require.True(t, ok)
	require.Len(t, roots, 1)
	require.Equal(t, it.ID, roots[0].ID)
}

func TestUnresolvedPathsFail(t *testing.T) {
	s := bagStore(t)
	missing := Path{{Item: "Chest", Slot: "Inside"}}

	_, err := s.AddChild(missing, Item{Name: "Coin", Quantity: 1})
	require.ErrorIs(t, err, ErrPathNotFound)

	_, err = s.RemoveChild(missing, "x")
	require.ErrorIs(t, err, ErrPathNotFound)

	_, err = s.UpdateNode(missing, "x", Fields{Name: "Coin"})
	require.ErrorIs(t, err, ErrPathNotFound)

	_, ok := s.FindNode(missing)
	require.False(t, ok)
	_, ok = s.Children(missing)
	require.False(t, ok)

	_, err = s.RemoveChild(Path{{Item: "Bag", Slot: "Inside"}}, "nope")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestAddChildValidatesFields(t *testing.T) {
	s := bagStore(t)
	_, err := s.AddChild(nil, Item{Name: "  "})
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = s.AddChild(nil, Item{Name: "Coin", Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestIDsStayGloballyUnique(t *testing.T) {
	s := New(nil, nil)
	root, err := s.AddChild(nil, Item{Name: "Chest", Quantity: 1})
	require.NoError(t, err)
	inside := Path{{Item: "Chest", Slot: "Inside"}}

	// Explicit ids that collide with existing nodes or with each other are replaced.
	_, err = s.AddChild(inside, Item{ID: root.ID, Name: "Box", Quantity: 1})
	require.Error(t, err) // root.ID is an ancestor of the target slot
	require.ErrorIs(t, err, ErrCycle)

	first, err := s.AddChild(inside, Item{ID: "dup", Name: "Box", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "dup", first.ID)
	second, err := s.AddChild(inside, Item{ID: "dup", Name: "Box", Quantity: 1, Containers: map[string][]Item{
		"Lid": {{ID: "dup", Name: "Gem", Quantity: 1}, {ID: "dup", Name: "Gem", Quantity: 1}},
	}})
	require.NoError(t, err)
	require.NotEqual(t, "dup", second.ID)

	for i := 0; i < 20; i++ {
		_, err := s.AddChild(inside, Item{Name: fmt.Sprintf("Pebble %d", i), Quantity: 1})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var check func([]Item)
	check = func(items []Item) {
		for _, it := range items {
			require.NotEmpty(t, it.ID)
			require.False(t, seen[it.ID], "duplicate id %s", it.ID)
			seen[it.ID] = true
			for _, children := range it.Containers {
				check(children)
			}
		}
	}
	check(s.Items())
	require.Equal(t, s.Len(), len(seen))
}

func TestAddChildRejectsAncestorInSubtree(t *testing.T) {
	s := New(nil, nil, WithIDGenerator(sequentialIDs()))
	pouch, err := s.AddChild(nil, Item{Name: "Pouch", Quantity: 1})
	require.NoError(t, err)
	key, err := s.AddChild(Path{{Item: "Pouch", Slot: "Main"}}, Item{Name: "Key", Quantity: 1})
	require.NoError(t, err)

	deep := Path{{Item: "Pouch", Slot: "Main"}, {Item: "Key", Slot: "Ring"}}
	_, err = s.AddChild(deep, pouch)
	require.ErrorIs(t, err, ErrCycle)
	_, err = s.AddChild(deep, key)
	require.ErrorIs(t, err, ErrCycle)
}

func TestUpdateNodeKeepsContentsAcrossRename(t *testing.T) {
	catalog := slotMap{"Bag": {"Inside"}, "Box": {"Lid"}}
	s := New(nil, catalog, WithIDGenerator(sequentialIDs()))
	bag, err := s.AddChild(nil, Item{Name: "Bag", Quantity: 1})
	require.NoError(t, err)
	_, err = s.AddChild(Path{{Item: "Bag", Slot: "Inside"}}, Item{Name: "Coin", Quantity: 3})
	require.NoError(t, err)

	updated, err := s.UpdateNode(nil, bag.ID, Fields{Name: "Box", Quantity: 2, Owner: "Ada", Description: "oak", Location: "attic"})
	require.NoError(t, err)
	require.Equal(t, "Box", updated.Name)
	require.Equal(t, 2, updated.Quantity)
	require.Equal(t, "Ada", updated.Owner)
	require.Len(t, updated.Containers["Inside"], 1)

	require.Equal(t, []string{"Lid"}, s.ContainerSlots("Box"))
	require.Equal(t, []string{"Lid", "Inside"}, s.NodeSlots(updated))

	// The old name no longer resolves; the new one does.
	_, ok := s.Children(Path{{Item: "Bag", Slot: "Inside"}})
	require.False(t, ok)
	coins, ok := s.Children(Path{{Item: "Box", Slot: "Inside"}})
	require.True(t, ok)
	require.Len(t, coins, 1)
}

func TestUpdateNodeValidates(t *testing.T) {
	s := bagStore(t)
	_, err := s.UpdateNode(nil, "bag", Fields{Name: "Bag", Quantity: -2})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.UpdateNode(nil, "bag", Fields{})
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestContainerSlotsFallsBackToExistingKeys(t *testing.T) {
	items := []Item{
		{ID: "a", Name: "Crate", Containers: map[string][]Item{"Top": {}, "Bottom": {}}},
		{ID: "b", Name: "Shelf", Containers: map[string][]Item{
			"Row": {{ID: "c", Name: "Crate", Containers: map[string][]Item{"Bottom": {}, "Side": {}}}},
		}},
	}
	s := New(items, slotMap{"Shelf": {"Row"}})

	require.Equal(t, []string{"Bottom", "Side", "Top"}, s.ContainerSlots("Crate"))
	require.Equal(t, []string{"Row"}, s.ContainerSlots("Shelf"))
	require.Empty(t, s.ContainerSlots("Unknown"))
}

func TestPathResolutionPicksFirstSameNamedSibling(t *testing.T) {
	// Hops match by name, so a second sibling called "Pouch" can never be reached.
	items := []Item{
		{ID: "p1", Name: "Pouch", Containers: map[string][]Item{"Main": {{ID: "n1", Name: "Note"}}}},
		{ID: "p2", Name: "Pouch", Containers: map[string][]Item{"Main": {{ID: "n2", Name: "Map"}}}},
	}
	s := New(items, nil)

	children, ok := s.Children(Path{{Item: "Pouch", Slot: "Main"}})
	require.True(t, ok)
	require.Len(t, children, 1)
	require.Equal(t, "n1", children[0].ID)

	_, err := s.RemoveChild(Path{{Item: "Pouch", Slot: "Main"}}, "n2")
	require.ErrorIs(t, err, ErrItemNotFound)

	// The terminal operation matches by id, so either sibling can be removed from the root.
	_, err = s.RemoveChild(nil, "p2")
	require.NoError(t, err)
}

func TestDuplicateIDsOnLoadUseFirstMatch(t *testing.T) {
	items := []Item{
		{ID: "same", Name: "First"},
		{ID: "same", Name: "Second"},
	}
	s := New(items, nil)
	got, ok := s.Get("same")
	require.True(t, ok)
	require.Equal(t, "First", got.Name)

	_, err := s.RemoveChild(nil, "same")
	require.NoError(t, err)
	got, ok = s.Get("same")
	require.True(t, ok)
	require.Equal(t, "Second", got.Name)
}

func TestReadsReturnCopies(t *testing.T) {
	s := bagStore(t)
	_, err := s.AddChild(Path{{Item: "Bag", Slot: "Inside"}}, Item{Name: "Coin", Quantity: 1})
	require.NoError(t, err)

	items := s.Items()
	items[0].Name = "Mutated"
	items[0].Containers["Inside"][0].Quantity = 99

	again := s.Items()
	require.Equal(t, "Bag", again[0].Name)
	require.Equal(t, 1, again[0].Containers["Inside"][0].Quantity)
}
