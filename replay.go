package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"hotkeyd/action"
	"hotkeyd/hotkey"
	"hotkeyd/input"
)

// scriptSource turns "DOWN <KEY>" / "UP <KEY>" / "REPEAT <KEY>" lines into
// single-event batches. Blank lines and # comments are skipped.
type scriptSource struct {
	sc   *bufio.Scanner
	line int
}

func newScriptSource(r io.Reader) *scriptSource {
	return &scriptSource{sc: bufio.NewScanner(r)}
}

func (s *scriptSource) Next() ([]input.Event, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e, err := parseScriptLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return []input.Event{e}, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *scriptSource) Close() error { return nil }

func parseScriptLine(text string) (input.Event, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return input.Event{}, fmt.Errorf("want \"DOWN|UP|REPEAT <KEY>\", got %q", text)
	}
	var value int32
	switch strings.ToUpper(fields[0]) {
	case "DOWN", "KEYDOWN":
		value = input.ValueDown
	case "UP", "KEYUP":
		value = input.ValueUp
	case "REPEAT":
		value = input.ValueRepeat
	default:
		return input.Event{}, fmt.Errorf("unknown transition %q", fields[0])
	}
	k, err := input.ParseKey(fields[1])
	if err != nil {
		return input.Event{}, err
	}
	return input.Event{Type: input.EvKey, Code: uint16(k), Value: value}, nil
}

// printDispatcher reports actions instead of running them.
type printDispatcher struct {
	w   io.Writer
	src *scriptSource
}

func (p printDispatcher) Dispatch(k action.Kind) (action.Result, error) {
	fmt.Fprintf(p.w, "line %d: %s\n", p.src.line, k)
	return action.Result{Kind: k}, nil
}

// replay runs the daemon loop over a script, printing fired actions.
func replay(r io.Reader, w io.Writer, bindings []hotkey.Binding) error {
	src := newScriptSource(r)
	d := newDaemon(src, "replay", bindings, printDispatcher{w: w, src: src})
	if err := d.Run(); !errors.Is(err, io.EOF) {
		return err
	}
	pressed := d.matcher.Pressed().Keys()
	if len(pressed) > 0 {
		names := make([]string, len(pressed))
		for i, k := range pressed {
			names[i] = k.String()
		}
		fmt.Fprintf(w, "still held: %s\n", strings.Join(names, " "))
	}
	return nil
}
