// Package statemachine implements a small state machine with an explicit
// table of allowed transitions. States are values; the table is keyed by
// their Kind so that a state may carry a payload while still being checked
// against a fixed set of legal moves.
package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrEmptyKinds        = errors.New("state machine has no states")
	ErrEmptyTransitions  = errors.New("state machine has no transitions")
	ErrUnknownKind       = errors.New("unknown state kind")
)

// Kind names a family of states, e.g. "Connecting".
type Kind string

// State is a single (possibly payload carrying) state.
type State interface {
	Kind() Kind
}

// InvalidTransitionError is returned when a move is not present in the
// transition table.
type InvalidTransitionError struct {
	From Kind
	To   Kind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition from %s to %s invalid", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Table is the immutable set of kinds and the kinds reachable from each.
type Table struct {
	kinds       map[Kind]struct{}
	transitions map[Kind]map[Kind]struct{}
}

// NewTable validates and builds a transition table. Every kind referenced by
// transitions must be listed in kinds.
func NewTable(kinds []Kind, transitions map[Kind][]Kind) (*Table, error) {
	if len(kinds) == 0 {
		return nil, ErrEmptyKinds
	}

	if len(transitions) == 0 {
		return nil, ErrEmptyTransitions
	}

	t := &Table{
		kinds:       make(map[Kind]struct{}, len(kinds)),
		transitions: make(map[Kind]map[Kind]struct{}, len(transitions)),
	}

	for _, k := range kinds {
		t.kinds[k] = struct{}{}
	}

	for from, tos := range transitions {
		if !t.Has(from) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, from)
		}

		set := make(map[Kind]struct{}, len(tos))
		for _, to := range tos {
			if !t.Has(to) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownKind, to)
			}
			set[to] = struct{}{}
		}

		t.transitions[from] = set
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on a malformed table. It is meant
// for package level tables that are fixed at compile time.
func MustNewTable(kinds []Kind, transitions map[Kind][]Kind) *Table {
	t, err := NewTable(kinds, transitions)
	if err != nil {
		panic(err)
	}

	return t
}

// Has reports whether k is one of the table's kinds.
func (t *Table) Has(k Kind) bool {
	_, ok := t.kinds[k]
	return ok
}

// Allows reports whether a single step from -> to is legal.
func (t *Table) Allows(from, to Kind) bool {
	_, ok := t.transitions[from][to]
	return ok
}

// Machine holds the active state and enforces the table on every move. It is
// not safe for concurrent use.
type Machine struct {
	table *Table
	state State
}

func NewMachine(table *Table, initial State) (*Machine, error) {
	if initial == nil || !table.Has(initial.Kind()) {
		return nil, fmt.Errorf("%w: initial state", ErrUnknownKind)
	}

	return &Machine{table: table, state: initial}, nil
}

// Transition moves to next if the table allows it. On failure the current
// state is left untouched.
func (m *Machine) Transition(next State) error {
	from := m.state.Kind()
	to := next.Kind()

	if !m.table.Allows(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}

	m.state = next
	return nil
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) StateName() string {
	return string(m.state.Kind())
}

// IsState reports whether the active state is of kind k.
func (m *Machine) IsState(k Kind) bool {
	return m.state.Kind() == k
}
