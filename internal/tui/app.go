package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/satchel/internal/catalog"
	"github.com/jask/satchel/internal/inventory"
	"github.com/jask/satchel/internal/levels"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	slotStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	columnStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedStyle  = columnStyle.BorderForeground(lipgloss.Color("69"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
)

type modalState string

const (
	modalNone          modalState = ""
	modalAdd           modalState = "add"
	modalEdit          modalState = "edit"
	modalConfirmRemove modalState = "confirmRemove"
)

// row is one line of a level column: an item, or a placeholder for an empty slot.
type row struct {
	slot string
	id   string
}

// App renders the synchronizer's levels and turns keys into selection and
// mutation calls.
type App struct {
	sync    *levels.Synchronizer
	catalog *catalog.Catalog
	title   string

	keys    keyMap
	prompt  promptKeys
	confirm confirmKeys
	help    help.Model

	focus   int
	cursors map[int]int

	modal     modalState
	input     textinput.Model
	editField int
	status    string
	statusErr bool
	width     int
}

// New builds the browser for sync. cat may be nil.
func New(sync *levels.Synchronizer, cat *catalog.Catalog, title string) *App {
	in := textinput.New()
	in.CharLimit = 200
	a := &App{
		sync:    sync,
		catalog: cat,
		title:   title,
		keys:    defaultKeyMap(),
		prompt:  defaultPromptKeys(),
		confirm: defaultConfirmKeys(),
		help:    help.New(),
		cursors: map[int]int{},
		input:   in,
	}
	sync.Subscribe(a.onEvent)
	return a
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) onEvent(e levels.Event) {
	switch e.Kind {
	case levels.TornDown:
		delete(a.cursors, e.Depth)
		if a.focus >= e.Depth {
			a.focus = e.Depth - 1
		}
	case levels.Materialized:
		a.cursors[e.Depth] = 0
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.help.Width = m.Width
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Up):
		if a.cursors[a.focus] > 0 {
			a.cursors[a.focus]--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursors[a.focus] < len(a.rows(a.focus))-1 {
			a.cursors[a.focus]++
		}
	case key.Matches(m, a.keys.NextSlot):
		a.nextSlot()
	case key.Matches(m, a.keys.Open):
		r, ok := a.current()
		if ok && r.id != "" {
			a.setErr(a.sync.Select(a.focus, r.slot, r.id))
		}
		if a.focus+1 < a.sync.Depth() {
			a.focus++
		}
	case key.Matches(m, a.keys.Back):
		if a.focus > 0 {
			a.focus--
		}
	case key.Matches(m, a.keys.Deselect):
		a.setErr(a.sync.Deselect(a.focus))
	case key.Matches(m, a.keys.Add):
		if _, ok := a.current(); ok {
			a.modal = modalAdd
			a.input.Prompt = "add item (name or name*qty): "
			a.input.Placeholder = "Coin*5"
			a.setInput("")
			return a, a.input.Focus()
		}
	case key.Matches(m, a.keys.Edit):
		if r, ok := a.current(); ok && r.id != "" {
			a.modal = modalEdit
			a.input.Placeholder = ""
			a.loadField(r, 0)
			return a, a.input.Focus()
		}
	case key.Matches(m, a.keys.Remove):
		if r, ok := a.current(); ok && r.id != "" {
			a.modal = modalConfirmRemove
		}
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := a.current()
	if !ok {
		a.closeModal()
		return a, nil
	}
	if a.modal == modalConfirmRemove {
		switch {
		case key.Matches(m, a.confirm.Yes):
			a.modal = modalNone
			if it, err := a.sync.Remove(a.focus, r.slot, r.id); a.setErr(err) {
				a.status = fmt.Sprintf("removed %s", it.Name)
			}
			a.clampCursor()
		case key.Matches(m, a.confirm.No):
			a.modal = modalNone
		}
		return a, nil
	}

	switch {
	case key.Matches(m, a.prompt.Close):
		// Closing the editor keeps what was typed; closing the add prompt creates nothing.
		if a.modal == modalEdit {
			a.commitField(r)
		}
		a.closeModal()
		return a, nil
	case key.Matches(m, a.prompt.NextField):
		if a.modal == modalEdit && a.commitField(r) {
			a.loadField(r, (a.editField+1)%len(levels.Fields))
		}
		return a, nil
	case key.Matches(m, a.prompt.Submit):
		switch a.modal {
		case modalAdd:
			text := a.input.Value()
			if strings.TrimSpace(text) == "" {
				a.status = "enter a name"
				return a, nil
			}
			a.closeModal()
			a.add(r.slot, text)
		case modalEdit:
			a.commitField(r)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(m)
	return a, cmd
}

func (a *App) closeModal() {
	a.modal = modalNone
	a.input.Blur()
	a.setInput("")
}

func (a *App) setInput(v string) {
	a.input.SetValue(v)
	a.input.CursorEnd()
}

// loadField puts field i of the item at r into the prompt.
func (a *App) loadField(r row, i int) {
	a.editField = i
	f := levels.Fields[i]
	a.input.Prompt = string(f) + ": "
	a.setInput(a.fieldValue(r, f))
}

// commitField saves the prompt's value for the current field when it differs
// from the stored one. It reports false when the value was rejected.
func (a *App) commitField(r row) bool {
	field := levels.Fields[a.editField]
	value := a.input.Value()
	if value == a.fieldValue(r, field) {
		return true
	}
	if _, err := a.sync.Edit(a.focus, r.slot, r.id, field, value); !a.setErr(err) {
		return false
	}
	a.status = fmt.Sprintf("saved %s", field)
	return true
}

// nextSlot moves the cursor to the first row of the next slot, wrapping.
func (a *App) nextSlot() {
	rows := a.rows(a.focus)
	if len(rows) == 0 {
		return
	}
	c := a.cursors[a.focus]
	for i := 1; i <= len(rows); i++ {
		j := (c + i) % len(rows)
		if rows[j].slot != rows[c].slot && (j == 0 || rows[j-1].slot != rows[j].slot) {
			a.cursors[a.focus] = j
			return
		}
	}
}

// add parses "name" or "name*qty" and adds it to slot at the focused level.
func (a *App) add(slot, text string) {
	f := inventory.Fields{Name: strings.TrimSpace(text), Quantity: 1}
	if name, qty, ok := strings.Cut(text, "*"); ok {
		q, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			a.setErr(fmt.Errorf("quantity %q: %w", qty, inventory.ErrInvalidQuantity))
			return
		}
		f.Name = strings.TrimSpace(name)
		f.Quantity = q
	}
	it, err := a.sync.Add(a.focus, slot, f)
	if !a.setErr(err) {
		return
	}
	a.status = fmt.Sprintf("added %s", it.Name)
	if a.catalog != nil {
		if _, known := a.catalog.Slots(it.Name); !known {
			if hints := a.catalog.Suggest(it.Name, 3); len(hints) > 0 {
				a.status += fmt.Sprintf(" (unknown type; did you mean %s?)", strings.Join(hints, ", "))
			} else {
				a.status += " (unknown type)"
			}
		}
	}
}

// setErr records err in the status line and reports whether it was nil.
func (a *App) setErr(err error) bool {
	if err == nil {
		a.statusErr = false
		return true
	}
	a.statusErr = true
	switch {
	case errors.Is(err, inventory.ErrPathNotFound):
		a.status = "that container can no longer be found"
	default:
		a.status = err.Error()
	}
	return false
}

func (a *App) rows(depth int) []row {
	l, ok := a.sync.Level(depth)
	if !ok {
		return nil
	}
	var out []row
	for _, sl := range l.Slots {
		if len(sl.Items) == 0 {
			out = append(out, row{slot: sl.Name})
			continue
		}
		for _, it := range sl.Items {
			out = append(out, row{slot: sl.Name, id: it.ID})
		}
	}
	return out
}

func (a *App) current() (row, bool) {
	rows := a.rows(a.focus)
	c := a.cursors[a.focus]
	if c < 0 || c >= len(rows) {
		return row{}, false
	}
	return rows[c], true
}

func (a *App) clampCursor() {
	if n := len(a.rows(a.focus)); a.cursors[a.focus] >= n {
		a.cursors[a.focus] = max(n-1, 0)
	}
}

func (a *App) fieldValue(r row, f levels.Field) string {
	l, _ := a.sync.Level(a.focus)
	it, ok := l.Item(r.slot, r.id)
	if !ok {
		return ""
	}
	switch f {
	case levels.FieldName:
		return it.Name
	case levels.FieldQuantity:
		return strconv.Itoa(it.Quantity)
	case levels.FieldOwner:
		return it.Owner
	case levels.FieldDescription:
		return it.Description
	case levels.FieldLocation:
		return it.Location
	}
	return ""
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("satchel · " + a.title))
	b.WriteString("\n")

	cols := make([]string, 0, a.sync.Depth())
	for _, l := range a.sync.Levels() {
		cols = append(cols, a.renderLevel(l))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")
	b.WriteString(a.renderModal())

	if a.status != "" {
		style := statusStyle
		if a.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(a.helpView()))
	return b.String()
}

func (a *App) renderLevel(l levels.Level) string {
	var b strings.Builder
	if l.Owner != nil {
		b.WriteString(titleStyle.Render(l.Owner.Name))
	} else {
		b.WriteString(titleStyle.Render("Inventory"))
	}
	b.WriteString("\n")
	cursor := a.cursors[l.Depth]
	i := 0
	for _, sl := range l.Slots {
		if sl.Name != levels.RootSlot {
			b.WriteString(slotStyle.Render(sl.Name))
			b.WriteString("\n")
		}
		if len(sl.Items) == 0 {
			b.WriteString(a.marker(l.Depth, i == cursor) + statusStyle.Render("(empty)") + "\n")
			i++
			continue
		}
		for _, it := range sl.Items {
			line := fmt.Sprintf("%s ×%d", it.Name, it.Quantity)
			if sel := l.Selection; sel != nil && sel.Slot == sl.Name && sel.ID == it.ID {
				line = selectedStyle.Render(line)
			}
			b.WriteString(a.marker(l.Depth, i == cursor) + line + "\n")
			i++
		}
	}
	style := columnStyle
	if l.Depth == a.focus {
		style = focusedStyle
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) marker(depth int, atCursor bool) string {
	if atCursor && depth == a.focus {
		return "> "
	}
	return "  "
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalAdd, modalEdit:
		return a.input.View() + "\n"
	case modalConfirmRemove:
		return "remove item and everything inside it?\n"
	}
	return ""
}

func (a *App) helpView() string {
	switch a.modal {
	case modalAdd, modalEdit:
		return a.help.View(a.prompt)
	case modalConfirmRemove:
		return a.help.View(a.confirm)
	}
	return a.help.View(a.keys)
}
