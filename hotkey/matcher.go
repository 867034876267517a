package hotkey

import "hotkeyd/input"

// Matcher owns the pressed-key set and decides which bindings fire.
//
// A binding fires on a key-down edge that leaves its whole chord held. It
// then stays latched until one of its keys is released, so holding the
// chord while pressing other keys does not fire it again. Every binding is
// checked on every edge; overlapping chords may fire together.
type Matcher struct {
	bindings []Binding
	latched  []bool
	pressed  input.PressedSet
}

// NewMatcher returns a matcher over bindings with nothing held.
func NewMatcher(bindings []Binding) *Matcher {
	b := make([]Binding, len(bindings))
	copy(b, bindings)
	return &Matcher{
		bindings: b,
		latched:  make([]bool, len(b)),
		pressed:  input.NewPressedSet(),
	}
}

// Bindings returns the table the matcher was built with.
func (m *Matcher) Bindings() []Binding { return m.bindings }

// Pressed returns the live pressed-key set. Callers must not modify it.
func (m *Matcher) Pressed() input.PressedSet { return m.pressed }

// Feed applies one event and returns the bindings it fired, in table
// order. Non-key events, repeats and downs of keys already held return nil.
func (m *Matcher) Feed(e input.Event) []Binding {
	switch m.pressed.Apply(e) {
	case input.KeyPressed:
		return m.press()
	case input.KeyReleased:
		m.release(e.Key())
	}
	return nil
}

func (m *Matcher) press() []Binding {
	var fired []Binding
	for i, b := range m.bindings {
		if m.latched[i] || !m.pressed.ContainsAll(b.Chord) {
			continue
		}
		m.latched[i] = true
		fired = append(fired, b)
	}
	return fired
}

func (m *Matcher) release(key input.KeyCode) {
	for i, b := range m.bindings {
		if m.latched[i] && b.Has(key) {
			m.latched[i] = false
		}
	}
}
