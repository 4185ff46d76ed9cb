// Package flow simulates ownership states per entity along each
// control-flow path of a function body and evaluates the rule registry
// eagerly at every transition. Paths fork from a shared pre-branch
// snapshot; each path owns its state copy, so nothing is shared
// mutably across forks.
package flow

import (
	"memlint/internal/own"
	"memlint/internal/rules"
)

// entState is one entity's simulated state on one path.
type entState struct {
	st rules.State
	// group ties aliases of one allocation together: releasing any
	// member releases them all.
	group uint32
	// adjusted is set once pointer arithmetic moved the value.
	adjusted bool
	// stack is set when the value is the address of stack storage.
	stack bool
	// count is the simulated reference count for RefCounted entities.
	count int
}

// state is the per-path table. Cloned at every fork.
type state struct {
	ents map[own.EntityID]entState
}

func newState() *state {
	return &state{ents: make(map[own.EntityID]entState)}
}

func (s *state) clone() *state {
	out := &state{ents: make(map[own.EntityID]entState, len(s.ents))}
	for k, v := range s.ents {
		out.ents[k] = v
	}
	return out
}

func (s *state) get(id own.EntityID) entState {
	return s.ents[id]
}

func (s *state) set(id own.EntityID, es entState) {
	s.ents[id] = es
}

// releaseGroup marks every alias of the group as released.
func (s *state) releaseGroup(group uint32) {
	for id, es := range s.ents {
		if es.group == group && es.group != 0 {
			es.st = rules.Released
			s.ents[id] = es
		}
	}
}

// escapeGroup marks every alias of the group as escaped: ownership
// left the function, no further obligation.
func (s *state) escapeGroup(group uint32) {
	for id, es := range s.ents {
		if es.group == group && es.group != 0 {
			es.st = rules.Escaped
			s.ents[id] = es
		}
	}
}
