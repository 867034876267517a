// Package hotkey matches chords held on the handheld's buttons to actions.
package hotkey

import (
	"fmt"
	"strings"

	"hotkeyd/action"
	"hotkeyd/input"
)

// Binding pairs a chord of at least two keys with the action it triggers.
type Binding struct {
	Chord  []input.KeyCode
	Action action.Kind
}

// NewBinding validates and normalizes a binding. The chord is copied,
// deduplicated and sorted.
func NewBinding(k action.Kind, keys ...input.KeyCode) (Binding, error) {
	if !k.Valid() {
		return Binding{}, fmt.Errorf("binding: invalid action %v", k)
	}
	seen := make(map[input.KeyCode]bool, len(keys))
	chord := make([]input.KeyCode, 0, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			chord = append(chord, key)
		}
	}
	if len(chord) < 2 {
		return Binding{}, fmt.Errorf("binding %v: chord needs at least two distinct keys, got %d", k, len(chord))
	}
	input.SortKeys(chord)
	return Binding{Chord: chord, Action: k}, nil
}

func mustBinding(k action.Kind, keys ...input.KeyCode) Binding {
	b, err := NewBinding(k, keys...)
	if err != nil {
		panic(err)
	}
	return b
}

// Has reports whether key is a member of the chord.
func (b Binding) Has(key input.KeyCode) bool {
	for _, k := range b.Chord {
		if k == key {
			return true
		}
	}
	return false
}

// ChordString renders the chord with button labels, e.g. "SELECT+R2".
func (b Binding) ChordString() string {
	parts := make([]string, len(b.Chord))
	for i, k := range b.Chord {
		if label := k.Button(); label != "" {
			parts[i] = label
		} else {
			parts[i] = k.String()
		}
	}
	return strings.Join(parts, "+")
}

func (b Binding) String() string {
	return b.ChordString() + " -> " + b.Action.String()
}

// DefaultBindings returns the compiled chord table.
//
//	SELECT+R2    screenshot
//	SELECT+L2    quicksave
//	MENU+SELECT  kill
func DefaultBindings() []Binding {
	return []Binding{
		mustBinding(action.Screenshot, input.KeyRightCtrl, input.KeyPageDown),
		mustBinding(action.Quicksave, input.KeyRightCtrl, input.KeyPageUp),
		mustBinding(action.Kill, input.KeyEsc, input.KeyRightCtrl),
	}
}
