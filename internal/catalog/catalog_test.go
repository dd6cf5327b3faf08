package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDef(t *testing.T, dir, file, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "pouch.json", `{"name":"Pouch","containers":["Main","Side","Main"]}`)
	writeDef(t, dir, "iron_key.json", `{"containers":["Ring"]}`)
	writeDef(t, dir, "broken.json", `{"name":`)
	writeDef(t, dir, "notes.txt", `ignored`)
	writeDef(t, dir, "rope.json", `{"name":"Rope"}`)

	c, err := LoadDir(dir, nil)
	require.NoError(t, err)

	slots, ok := c.Slots("Pouch")
	require.True(t, ok)
	require.Equal(t, []string{"Main", "Side"}, slots)

	slots, ok = c.Slots("iron_key")
	require.True(t, ok)
	require.Equal(t, []string{"Ring"}, slots)

	slots, ok = c.Slots("Rope")
	require.True(t, ok)
	require.Empty(t, slots)

	_, ok = c.Slots("Lantern")
	require.False(t, ok)

	require.Equal(t, []string{"Pouch", "Rope", "iron_key"}, c.Names())
}

func TestLoadDirMissing(t *testing.T) {
	c, err := LoadDir(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	require.Empty(t, c.Names())
}

func TestLoadDirLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "a.json", `{"name":"Box","containers":["Lid"]}`)
	writeDef(t, dir, "b.json", `{"name":"Box","containers":["Drawer"]}`)
	c, err := LoadDir(dir, nil)
	require.NoError(t, err)
	slots, _ := c.Slots("Box")
	require.Equal(t, []string{"Drawer"}, slots)
}

func TestSlotsReturnsCopy(t *testing.T) {
	c := New(Definition{Name: "Bag", Containers: []string{"Inside"}})
	slots, _ := c.Slots("Bag")
	slots[0] = "Changed"
	again, _ := c.Slots("Bag")
	require.Equal(t, []string{"Inside"}, again)
}

func TestSuggest(t *testing.T) {
	c := New(
		Definition{Name: "Pouch"},
		Definition{Name: "Porch"},
		Definition{Name: "Iron Key"},
		Definition{Name: "Lantern"},
	)
	require.Equal(t, []string{"Pouch", "Porch"}, c.Suggest("pouhc", 3))
	require.Equal(t, []string{"Iron Key"}, c.Suggest("iron ky", 1))
	require.Empty(t, c.Suggest("zzzzzzzzzz", 3))
	require.Empty(t, c.Suggest("", 3))

	var nilCatalog *Catalog
	require.Nil(t, nilCatalog.Suggest("pouch", 2))
}
