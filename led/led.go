// Package led drives the handheld's indicator LEDs through the sysfs
// trigger interface.
package led

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultDir holds one ledN directory per indicator.
const DefaultDir = "/sys/devices/platform/sunxi-led/leds"

const (
	triggerOn  = "default-on"
	triggerOff = "none"
)

// Switch is anything that can be lit and cleared.
type Switch interface {
	On() error
	Off() error
}

// LED is one indicator, addressed by index under a leds directory.
type LED struct {
	Path string // trigger file
}

// New returns the LED with the given index under dir.
func New(dir string, index int) *LED {
	return &LED{Path: filepath.Join(dir, "led"+strconv.Itoa(index), "trigger")}
}

func (l *LED) On() error  { return l.set(triggerOn) }
func (l *LED) Off() error { return l.set(triggerOff) }

func (l *LED) set(trigger string) error {
	// Never create the attribute; O_TRUNC is what a shell redirect does.
	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("led %s: %w", trigger, err)
	}
	defer f.Close()
	if _, err := f.WriteString(trigger); err != nil {
		return fmt.Errorf("led %s: %w", trigger, err)
	}
	return nil
}

// Hold lights s for the duration of fn. s is cleared on every exit path of
// fn, including errors and panics; a failure to clear is joined to fn's
// error. If s cannot be lit, fn is not run.
func Hold(s Switch, fn func() error) (err error) {
	if err := s.On(); err != nil {
		return err
	}
	defer func() {
		if offErr := s.Off(); offErr != nil {
			err = errors.Join(err, offErr)
		}
	}()
	return fn()
}
