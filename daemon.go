package main

import (
	"sync/atomic"
	"time"

	"hotkeyd/action"
	"hotkeyd/hotkey"
	"hotkeyd/input"
	"hotkeyd/log"
)

type eventSource interface {
	Next() ([]input.Event, error)
	Close() error
}

type dispatcher interface {
	Dispatch(k action.Kind) (action.Result, error)
}

// Daemon is the event loop: read a batch, feed each event to the matcher
// in order, run whatever fired to completion, repeat. Nothing else runs
// while an action is in progress.
type Daemon struct {
	src      eventSource
	device   string
	matcher  *hotkey.Matcher
	actions  dispatcher
	stopping atomic.Pointer[string]
}

func newDaemon(src eventSource, device string, bindings []hotkey.Binding, actions dispatcher) *Daemon {
	return &Daemon{
		src:     src,
		device:  device,
		matcher: hotkey.NewMatcher(bindings),
		actions: actions,
	}
}

// Run returns nil after Stop, or the input error that ended the loop.
// Action failures are logged and never end the loop.
func (d *Daemon) Run() error {
	for {
		events, err := d.src.Next()
		if err != nil {
			if d.stopping.Load() != nil {
				return nil
			}
			log.InputError(d.device, err)
			return err
		}
		for _, e := range events {
			d.handle(e)
		}
	}
}

func (d *Daemon) handle(e input.Event) {
	for _, b := range d.matcher.Feed(e) {
		log.HotkeyFired(b.Action.String(), b.ChordString())
		start := time.Now()
		res, err := d.actions.Dispatch(b.Action)
		log.ActionDone(log.ActionRecord{
			Action:   b.Action.String(),
			Path:     res.Path,
			PIDs:     res.PIDs,
			Duration: time.Since(start),
			Err:      err,
		})
	}
}

// Stop makes Run return once its pending read is interrupted. It is safe
// to call from a signal handler goroutine.
func (d *Daemon) Stop(reason string) error {
	d.stopping.CompareAndSwap(nil, &reason)
	return d.src.Close()
}

// StopReason returns the reason given to Stop, or "" if it was not called.
func (d *Daemon) StopReason() string {
	if r := d.stopping.Load(); r != nil {
		return *r
	}
	return ""
}

func bindingNames(bs []hotkey.Binding) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.String()
	}
	return out
}
