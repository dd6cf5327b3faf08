package inventory

import "strings"

// Hop descends into slot Slot of the first item named Item at the current level.
type Hop struct {
	Item string
	Slot string
}

// Path is a sequence of hops from the root item list. The empty path addresses
// the root list itself.
type Path []Hop

// Child returns a new path extending p by one hop. p is not modified.
func (p Path) Child(item, slot string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Hop{Item: item, Slot: slot})
}

// Parent returns p without its last hop.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return append(Path(nil), p[:len(p)-1]...)
}

// Slot returns the slot name the path lands in, or "" for the root path.
func (p Path) Slot() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].Slot
}

// Equal reports whether p and o name the same hops.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, 0, len(p))
	for _, h := range p {
		parts = append(parts, h.Item+"→"+h.Slot)
	}
	return strings.Join(parts, "/")
}

func (p Path) key() string {
	var b strings.Builder
	for _, h := range p {
		b.WriteString(h.Item)
		b.WriteByte(0x1f)
		b.WriteString(h.Slot)
		b.WriteByte(0x1e)
	}
	return b.String()
}
