package input

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyCode is a Linux evdev key code (linux/input-event-codes.h).
type KeyCode uint16

// Key codes emitted by the handheld's gpio-keys device, plus a few generic
// ones that show up on development keyboards.
const (
	KeyEsc        KeyCode = 1
	KeyBackspace  KeyCode = 14
	KeyTab        KeyCode = 15
	KeyE          KeyCode = 18
	KeyT          KeyCode = 20
	KeyEnter      KeyCode = 28
	KeyLeftCtrl   KeyCode = 29
	KeyLeftShift  KeyCode = 42
	KeyLeftAlt    KeyCode = 56
	KeySpace      KeyCode = 57
	KeyRightCtrl  KeyCode = 97
	KeyUp         KeyCode = 103
	KeyPageUp     KeyCode = 104
	KeyLeft       KeyCode = 105
	KeyRight      KeyCode = 106
	KeyDown       KeyCode = 108
	KeyPageDown   KeyCode = 109
	KeyVolumeDown KeyCode = 114
	KeyVolumeUp   KeyCode = 115
	KeyPower      KeyCode = 116
)

var keyNames = map[KeyCode]string{
	KeyEsc:        "KEY_ESC",
	KeyBackspace:  "KEY_BACKSPACE",
	KeyTab:        "KEY_TAB",
	KeyE:          "KEY_E",
	KeyT:          "KEY_T",
	KeyEnter:      "KEY_ENTER",
	KeyLeftCtrl:   "KEY_LEFTCTRL",
	KeyLeftShift:  "KEY_LEFTSHIFT",
	KeyLeftAlt:    "KEY_LEFTALT",
	KeySpace:      "KEY_SPACE",
	KeyRightCtrl:  "KEY_RIGHTCTRL",
	KeyUp:         "KEY_UP",
	KeyPageUp:     "KEY_PAGEUP",
	KeyLeft:       "KEY_LEFT",
	KeyRight:      "KEY_RIGHT",
	KeyDown:       "KEY_DOWN",
	KeyPageDown:   "KEY_PAGEDOWN",
	KeyVolumeDown: "KEY_VOLUMEDOWN",
	KeyVolumeUp:   "KEY_VOLUMEUP",
	KeyPower:      "KEY_POWER",
}

// Button labels printed on the handheld.
var buttonNames = map[string]KeyCode{
	"A":      KeySpace,
	"B":      KeyLeftCtrl,
	"X":      KeyLeftShift,
	"Y":      KeyLeftAlt,
	"L1":     KeyE,
	"R1":     KeyT,
	"L2":     KeyPageUp,
	"R2":     KeyPageDown,
	"SELECT": KeyRightCtrl,
	"START":  KeyEnter,
	"MENU":   KeyEsc,
	"UP":     KeyUp,
	"DOWN":   KeyDown,
	"LEFT":   KeyLeft,
	"RIGHT":  KeyRight,
	"VOL+":   KeyVolumeUp,
	"VOL-":   KeyVolumeDown,
	"POWER":  KeyPower,
}

// String returns the kernel name of the key, or KEY_<n> for unnamed codes.
func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "KEY_" + strconv.Itoa(int(k))
}

// Button returns the handheld button label for k, or "" if it has none.
func (k KeyCode) Button() string {
	for label, code := range buttonNames {
		if code == k {
			return label
		}
	}
	return ""
}

// ParseKey accepts a kernel name (KEY_RIGHTCTRL), a button label (SELECT)
// or a decimal key code.
func ParseKey(s string) (KeyCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if code, ok := buttonNames[s]; ok {
		return code, nil
	}
	for code, name := range keyNames {
		if name == s {
			return code, nil
		}
	}
	if n, err := strconv.ParseUint(strings.TrimPrefix(s, "KEY_"), 10, 16); err == nil {
		return KeyCode(n), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// SortKeys sorts keys by code in place and returns them.
func SortKeys(keys []KeyCode) []KeyCode {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
