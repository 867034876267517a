// Package action runs the things a chord is bound to.
//
// Every handler runs to completion on the caller's goroutine. Errors are
// returned to the caller and never retried.
package action

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"hotkeyd/led"
	"hotkeyd/proctree"
)

const (
	DefaultScreenshotDir   = "/mnt/SDCARD/Saves/screenshots"
	DefaultInterpreter     = "/bin/sh"
	DefaultQuicksaveScript = "/mnt/SDCARD/System/bin/quicksave.sh"
)

// ErrExecReplacement reports that the quicksave interpreter could not
// replace the daemon. The daemon is still running when this is returned.
var ErrExecReplacement = errors.New("process image replacement failed")

// Config holds the fixed paths the handlers act on.
type Config struct {
	ScreenshotDir   string
	Interpreter     string
	QuicksaveScript string
	KillMarker      string
}

// DefaultConfig returns the paths used on the device.
func DefaultConfig() Config {
	return Config{
		ScreenshotDir:   DefaultScreenshotDir,
		Interpreter:     DefaultInterpreter,
		QuicksaveScript: DefaultQuicksaveScript,
		KillMarker:      proctree.Marker,
	}
}

// Capturer writes the current display to a PNG file.
type Capturer interface {
	Capture(out string) error
}

// Terminator signals the process tree rooted at the process whose command
// line contains marker.
type Terminator interface {
	Terminate(marker string) ([]int, error)
}

// ExecFunc replaces the current process image. It only returns on failure.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Result describes what a handler did.
type Result struct {
	Kind Kind
	Path string // screenshot written
	PIDs []int  // processes signaled
}

// Dispatcher maps action kinds to handlers.
type Dispatcher struct {
	Config
	Screen    Capturer
	Indicator led.Switch
	Procs     Terminator
	Exec      ExecFunc
	Now       func() time.Time
}

// New returns a Dispatcher that replaces itself with unix.Exec and stamps
// screenshots in UTC.
func New(cfg Config, screen Capturer, indicator led.Switch, procs Terminator) *Dispatcher {
	return &Dispatcher{
		Config:    cfg,
		Screen:    screen,
		Indicator: indicator,
		Procs:     procs,
		Exec:      unix.Exec,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch runs the handler for k.
func (d *Dispatcher) Dispatch(k Kind) (Result, error) {
	res := Result{Kind: k}
	var err error
	switch k {
	case Screenshot:
		res.Path, err = d.Screenshot()
	case Quicksave:
		err = d.Quicksave()
	case Kill:
		res.PIDs, err = d.KillTree()
	default:
		err = fmt.Errorf("unknown action %v", k)
	}
	return res, err
}

// ScreenshotPath returns dir/Screenshot_YYYYMMDD_HHMMSS.png for t.
func ScreenshotPath(dir string, t time.Time) string {
	return filepath.Join(dir, "Screenshot_"+t.Format("20060102_150405")+".png")
}

// Screenshot captures the display into the screenshot directory with the
// indicator lit for the duration. The indicator is turned off again on
// every path, including a failed capture.
func (d *Dispatcher) Screenshot() (string, error) {
	path := ScreenshotPath(d.ScreenshotDir, d.now())
	err := led.Hold(d.indicator(), func() error {
		if err := os.MkdirAll(d.ScreenshotDir, 0755); err != nil {
			return fmt.Errorf("creating screenshot directory: %w", err)
		}
		return d.Screen.Capture(path)
	})
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", path, err)
	}
	return path, nil
}

// Quicksave replaces the daemon with the quicksave script. On success it
// does not return; the supervisor is expected to start the daemon again.
func (d *Dispatcher) Quicksave() error {
	exec := d.Exec
	if exec == nil {
		exec = unix.Exec
	}
	argv := []string{d.Interpreter, d.QuicksaveScript}
	if err := exec(d.Interpreter, argv, os.Environ()); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrExecReplacement, d.Interpreter, d.QuicksaveScript, err)
	}
	return nil
}

// KillTree terminates the foreground launcher and its descendants. No
// launcher running is success with no pids.
func (d *Dispatcher) KillTree() ([]int, error) {
	pids, err := d.Procs.Terminate(d.KillMarker)
	if err != nil {
		return pids, fmt.Errorf("kill %s: %w", d.KillMarker, err)
	}
	return pids, nil
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) indicator() led.Switch {
	if d.Indicator != nil {
		return d.Indicator
	}
	return noIndicator{}
}

type noIndicator struct{}

func (noIndicator) On() error  { return nil }
func (noIndicator) Off() error { return nil }
