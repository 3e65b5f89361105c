package store

import "github.com/marcus/macropad/internal/profile"

// Selection points at the active profile of a store. The index is clamped
// into [0, Len) whenever it is read or changed.
type Selection struct {
	index int
}

// Index returns the selected index clamped to the store size.
func (sel *Selection) Index(s *Store) int {
	sel.clamp(s.Len())
	return sel.index
}

// Current returns the selected profile, or nil when the store is empty.
func (sel *Selection) Current(s *Store) *profile.Profile {
	return s.At(sel.Index(s))
}

// CurrentName returns the selected profile name, or "" when the store is
// empty.
func (sel *Selection) CurrentName(s *Store) string {
	if p := sel.Current(s); p != nil {
		return p.Name
	}
	return ""
}

// Set selects index i, clamped.
func (sel *Selection) Set(s *Store, i int) {
	sel.index = i
	sel.clamp(s.Len())
}

// SelectName selects the named profile. It returns false if there is none.
func (sel *Selection) SelectName(s *Store, name string) bool {
	i := s.Index(name)
	if i < 0 {
		return false
	}
	sel.index = i
	return true
}

// Wrap selects position pos modulo the store size, as an endless rotary
// encoder would.
func (sel *Selection) Wrap(s *Store, pos int) {
	n := s.Len()
	if n == 0 {
		sel.index = 0
		return
	}
	sel.index = ((pos % n) + n) % n
}

// Step moves the selection by delta, wrapping around.
func (sel *Selection) Step(s *Store, delta int) {
	sel.Wrap(s, sel.Index(s)+delta)
}

func (sel *Selection) clamp(n int) {
	switch {
	case n == 0 || sel.index < 0:
		sel.index = 0
	case sel.index >= n:
		sel.index = n - 1
	}
}
