// Package selection tracks which collections the merchant picked and whether
// the pick has been confirmed for rate editing.
package selection

import (
	"fmt"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/catalog"
)

// State is the phase of the selection.
type State int

const (
	// Browsing allows the selected set to change.
	Browsing State = iota
	// Locked freezes the set while rates are edited and prices previewed.
	Locked
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "browsing":
		*s = Browsing
	case "locked":
		*s = Locked
	default:
		return fmt.Errorf("unknown selection state %q", text)
	}
	return nil
}

// Machine is not safe for concurrent use; the owning screen serializes access.
type Machine struct {
	state    State
	selected map[string]struct{}
}

// New returns a Machine in Browsing with nothing selected.
func New() *Machine {
	return &Machine{state: Browsing, selected: make(map[string]struct{})}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Locked() bool {
	return m.state == Locked
}

// Toggle flips membership of id. It reports false and does nothing while locked.
func (m *Machine) Toggle(id string) bool {
	if m.state != Browsing {
		return false
	}
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
	} else {
		m.selected[id] = struct{}{}
	}
	return true
}

// SelectAll adds every id. Ignored while locked.
func (m *Machine) SelectAll(ids []string) bool {
	if m.state != Browsing {
		return false
	}
	for _, id := range ids {
		m.selected[id] = struct{}{}
	}
	return true
}

// DeselectAll clears the set. Ignored while locked.
func (m *Machine) DeselectAll() bool {
	if m.state != Browsing {
		return false
	}
	clear(m.selected)
	return true
}

// Confirm locks the selection. An empty selection is rejected and the machine
// stays in Browsing.
func (m *Machine) Confirm() error {
	if m.state == Locked {
		return nil
	}
	if len(m.selected) == 0 {
		return apperr.Validation("selection", "select at least one collection")
	}
	m.state = Locked
	return nil
}

// Reselect unlocks the selection, keeping the chosen ids.
func (m *Machine) Reselect() {
	m.state = Browsing
}

func (m *Machine) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

func (m *Machine) Len() int {
	return len(m.selected)
}

// Filter returns the selected collections in catalog order.
func (m *Machine) Filter(collections []catalog.Collection) []catalog.Collection {
	out := make([]catalog.Collection, 0, len(m.selected))
	for _, c := range collections {
		if m.IsSelected(c.ID) {
			out = append(out, c)
		}
	}
	return out
}
