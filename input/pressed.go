package input

// Transition is the effect a single event had on a PressedSet.
type Transition int

const (
	NoTransition Transition = iota
	KeyPressed
	KeyReleased
)

// PressedSet is the exact set of keys currently held down. It is only
// changed by Apply; a key-down for a key already held is not an edge and a
// key-up for a key not held is a no-op.
type PressedSet map[KeyCode]struct{}

// NewPressedSet returns an empty set.
func NewPressedSet() PressedSet {
	return make(PressedSet)
}

// Apply updates the set for one event and reports the transition it caused.
// Non-key events and auto-repeats never change the set.
func (s PressedSet) Apply(e Event) Transition {
	if !e.IsKey() {
		return NoTransition
	}
	k := e.Key()
	switch e.Value {
	case ValueDown:
		if _, held := s[k]; held {
			return NoTransition
		}
		s[k] = struct{}{}
		return KeyPressed
	case ValueUp:
		if _, held := s[k]; !held {
			return NoTransition
		}
		delete(s, k)
		return KeyReleased
	}
	return NoTransition
}

// Has reports whether k is held.
func (s PressedSet) Has(k KeyCode) bool {
	_, ok := s[k]
	return ok
}

// ContainsAll reports whether every key in keys is held.
func (s PressedSet) ContainsAll(keys []KeyCode) bool {
	for _, k := range keys {
		if _, ok := s[k]; !ok {
			return false
		}
	}
	return true
}

// Keys returns the held keys sorted by code.
func (s PressedSet) Keys() []KeyCode {
	out := make([]KeyCode, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return SortKeys(out)
}
