// Package catalog loads item type definitions: for each item name, the ordered
// container slots its instances expose.
package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Definition is one item type as stored in its definition file.
type Definition struct {
	Name       string   `json:"name"`
	Containers []string `json:"containers"`
}

// Catalog maps item names to container slots. It is read-only once built.
type Catalog struct {
	slots map[string][]string
}

// New builds a catalog from defs. Later definitions replace earlier ones with
// the same name.
func New(defs ...Definition) *Catalog {
	c := &Catalog{slots: make(map[string][]string, len(defs))}
	for _, d := range defs {
		c.slots[d.Name] = dedupe(d.Containers)
	}
	return c
}

// LoadDir reads every *.json definition in dir. Files that cannot be read or
// decoded are logged and skipped; a missing directory gives an empty catalog.
func LoadDir(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("catalog directory missing", "dir", dir)
			return New(), nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	c := New()
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("catalog: read definition", "path", path, "err", err)
			continue
		}
		var d Definition
		if err := json.Unmarshal(data, &d); err != nil {
			logger.Warn("catalog: decode definition", "path", path, "err", err)
			continue
		}
		if strings.TrimSpace(d.Name) == "" {
			d.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if _, ok := c.slots[d.Name]; ok {
			logger.Warn("catalog: duplicate definition, keeping the later file", "name", d.Name, "path", path)
		}
		c.slots[d.Name] = dedupe(d.Containers)
	}
	logger.Debug("catalog loaded", "dir", dir, "types", len(c.slots))
	return c, nil
}

// Slots returns the container slots defined for name.
func (c *Catalog) Slots(name string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.slots[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s...), true
}

// Names returns every defined item name, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.slots))
	for name := range c.slots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Suggest returns up to max defined names closest to name by edit distance,
// ignoring case. Names further than half the query length are not suggested.
func (c *Catalog) Suggest(name string, max int) []string {
	if c == nil || max <= 0 {
		return nil
	}
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil
	}
	limit := len(query)/2 + 1
	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for candidate := range c.slots {
		d := levenshtein.ComputeDistance(query, strings.ToLower(candidate))
		if d > limit {
			continue
		}
		hits = append(hits, scored{candidate, d})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].name < hits[j].name
	})
	if len(hits) > max {
		hits = hits[:max]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

func dedupe(slots []string) []string {
	out := make([]string, 0, len(slots))
	seen := map[string]struct{}{}
	for _, s := range slots {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
