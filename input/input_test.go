package input

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func keyEv(k KeyCode, value int32) Event {
	return Event{Type: EvKey, Code: uint16(k), Value: value}
}

func TestDecoderWholeEvents(t *testing.T) {
	var raw []byte
	want := []Event{
		keyEv(KeyRightCtrl, ValueDown),
		{Type: EvSyn},
		keyEv(KeyPageDown, ValueDown),
		{Type: 0x03, Code: 0x00, Value: -42},
	}
	for _, e := range want {
		raw = AppendEvent(raw, e)
	}

	var d Decoder
	got := d.Feed(raw)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", d.Pending())
	}
}

func TestDecoderSplitChunks(t *testing.T) {
	raw := AppendEvent(nil, keyEv(KeyEnter, ValueDown))
	raw = AppendEvent(raw, keyEv(KeyEnter, ValueUp))

	var d Decoder
	if got := d.Feed(raw[:EventSize-3]); len(got) != 0 {
		t.Fatalf("partial event decoded: %+v", got)
	}
	if d.Pending() != EventSize-3 {
		t.Fatalf("Pending = %d, want %d", d.Pending(), EventSize-3)
	}
	got := d.Feed(raw[EventSize-3 : EventSize+1])
	if len(got) != 1 || got[0] != keyEv(KeyEnter, ValueDown) {
		t.Fatalf("got %+v", got)
	}
	got = d.Feed(raw[EventSize+1:])
	if len(got) != 1 || got[0] != keyEv(KeyEnter, ValueUp) {
		t.Fatalf("got %+v", got)
	}
}

func TestPressedSetTransitions(t *testing.T) {
	s := NewPressedSet()

	if tr := s.Apply(keyEv(KeySpace, ValueDown)); tr != KeyPressed {
		t.Errorf("first down = %v, want KeyPressed", tr)
	}
	if tr := s.Apply(keyEv(KeySpace, ValueRepeat)); tr != NoTransition {
		t.Errorf("repeat = %v, want NoTransition", tr)
	}
	if tr := s.Apply(keyEv(KeySpace, ValueDown)); tr != NoTransition {
		t.Errorf("second down without up = %v, want NoTransition", tr)
	}
	if tr := s.Apply(Event{Type: EvSyn}); tr != NoTransition {
		t.Errorf("syn = %v, want NoTransition", tr)
	}
	if !s.Has(KeySpace) {
		t.Fatal("KeySpace should be held")
	}
	if tr := s.Apply(keyEv(KeySpace, ValueUp)); tr != KeyReleased {
		t.Errorf("up = %v, want KeyReleased", tr)
	}
	if tr := s.Apply(keyEv(KeySpace, ValueUp)); tr != NoTransition {
		t.Errorf("up while released = %v, want NoTransition", tr)
	}
	if len(s) != 0 {
		t.Errorf("set = %v, want empty", s.Keys())
	}
}

// After any prefix of events the set holds exactly the keys whose last
// event in that prefix was a down.
func TestPressedSetMatchesLastTransition(t *testing.T) {
	keys := []KeyCode{KeyRightCtrl, KeyPageDown, KeyPageUp, KeyEsc, KeyEnter}
	values := []int32{ValueUp, ValueDown, ValueRepeat}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		s := NewPressedSet()
		last := map[KeyCode]int32{}
		for i := 0; i < 200; i++ {
			k := keys[rng.Intn(len(keys))]
			v := values[rng.Intn(len(values))]
			s.Apply(keyEv(k, v))
			if v != ValueRepeat {
				last[k] = v
			}

			for _, k := range keys {
				want := last[k] == ValueDown
				if s.Has(k) != want {
					t.Fatalf("run %d step %d: Has(%v) = %v, want %v", run, i, k, s.Has(k), want)
				}
			}
		}
	}
}

func TestContainsAll(t *testing.T) {
	s := NewPressedSet()
	s.Apply(keyEv(KeyRightCtrl, ValueDown))
	if s.ContainsAll([]KeyCode{KeyRightCtrl, KeyPageDown}) {
		t.Error("partial chord reported as held")
	}
	s.Apply(keyEv(KeyPageDown, ValueDown))
	s.Apply(keyEv(KeyEsc, ValueDown))
	if !s.ContainsAll([]KeyCode{KeyRightCtrl, KeyPageDown}) {
		t.Error("held chord not reported")
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []KeyCode{KeyEsc, KeyRightCtrl, KeyPageDown}) {
		t.Errorf("Keys = %v", got)
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string]KeyCode{
		"KEY_RIGHTCTRL": KeyRightCtrl,
		"select":        KeyRightCtrl,
		"R2":            KeyPageDown,
		"109":           KeyPageDown,
		"KEY_200":       200,
	}
	for in, want := range cases {
		got, err := ParseKey(in)
		if err != nil {
			t.Errorf("ParseKey(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKey(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseKey("NOPE"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := ParseKey(""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestKeyNames(t *testing.T) {
	if got := KeyPageDown.String(); got != "KEY_PAGEDOWN" {
		t.Errorf("String = %q", got)
	}
	if got := KeyCode(250).String(); got != "KEY_250" {
		t.Errorf("String = %q", got)
	}
	if got := KeyRightCtrl.Button(); got != "SELECT" {
		t.Errorf("Button = %q", got)
	}
	if got := KeyCode(250).Button(); got != "" {
		t.Errorf("Button = %q, want empty", got)
	}
}

func TestReaderReadsBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event0")
	var raw []byte
	raw = AppendEvent(raw, keyEv(KeyRightCtrl, ValueDown))
	raw = AppendEvent(raw, Event{Type: EvSyn})
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	evs, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0] != keyEv(KeyRightCtrl, ValueDown) {
		t.Fatalf("got %+v", evs)
	}

	// A regular file hits EOF where a device would block.
	if _, err := r.Next(); err == nil {
		t.Fatal("expected error at end of input")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "event9"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestListDevices(t *testing.T) {
	dev := t.TempDir()
	sys := t.TempDir()
	for _, name := range []string{"event0", "event1", "mice"} {
		if err := os.WriteFile(filepath.Join(dev, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	caps := filepath.Join(sys, "event0", "device", "capabilities")
	if err := os.MkdirAll(caps, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(sys, "event0", "device", "name"), []byte("gpio-keys\n"), 0644)
	os.WriteFile(filepath.Join(caps, "key"), []byte("3000000000 0 0 0\n"), 0644)

	devs, err := ListDevices(dev, sys)
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 2 {
		t.Fatalf("got %d devices, want 2: %+v", len(devs), devs)
	}
	if devs[0].Name != "gpio-keys" || !devs[0].HasKeys {
		t.Errorf("event0 = %+v", devs[0])
	}
	if devs[1].Name != "" || devs[1].HasKeys {
		t.Errorf("event1 = %+v", devs[1])
	}
}
