package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hotkeyd/framebuffer"
	"hotkeyd/hotkey"
	"hotkeyd/input"
	"hotkeyd/led"
	"hotkeyd/proctree"
)

// Options points the checks at the daemon's devices and paths.
type Options struct {
	Input            string
	Framebuffer      string
	FramebufferSysfs string
	LEDDir           string
	LED              int
	Interpreter      string
	QuicksaveScript  string
	ScreenshotDir    string
	Proc             string
	KillMarker       string

	// Blink lights the LED this long during its check. Zero only checks
	// that the trigger can be opened.
	Blink time.Duration
	// Probe waits this long for a bound chord on the input device. Zero
	// skips the probe.
	Probe time.Duration
	// Color styles PASS/FAIL; off when output is not a terminal.
	Color bool
}

// Result is the outcome of one check.
type Result struct {
	Name   string
	Detail string
	Err    error
}

func (r Result) Pass() bool { return r.Err == nil }

type check struct {
	name string
	fn   func(Options) (string, error)
}

var checks = []check{
	{"Input device", checkInput},
	{"Framebuffer geometry", checkGeometry},
	{"Framebuffer capture", checkCapture},
	{"LED indicator", checkLED},
	{"Quicksave interpreter", checkInterpreter},
	{"Quicksave script", checkScript},
	{"Screenshot directory", checkScreenshotDir},
	{"Process table", checkProcs},
}

// Check runs every non-interactive check.
func Check(opts Options) []Result {
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		detail, err := c.fn(opts)
		results = append(results, Result{Name: c.name, Detail: detail, Err: err})
	}
	return results
}

type styles struct {
	pass, fail, dim lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{pass: lipgloss.NewStyle(), fail: lipgloss.NewStyle(), dim: lipgloss.NewStyle()}
	}
	return styles{
		pass: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Run prints every check to out and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options, out io.Writer) int {
	setupInterruptHandler(releaseLED(opts))
	st := newStyles(opts.Color)

	fmt.Fprintln(out, "hotkeyd doctor - device diagnostics")
	fmt.Fprintln(out, "===================================")

	total := len(checks)
	if opts.Probe > 0 {
		total++
	}

	allPass := true
	for i, r := range Check(opts) {
		report(out, st, i+1, total, r)
		allPass = allPass && r.Pass()
	}

	if opts.Probe > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "[%d/%d] Chord probe\n", total, total)
		fmt.Fprintf(out, "Press a bound chord within %s...\n", opts.Probe)
		r := Result{Name: "Chord probe"}
		reader, err := input.Open(opts.Input)
		if err != nil {
			r.Err = err
		} else {
			r.Detail, r.Err = ProbeChord(reader, hotkey.DefaultBindings(), opts.Probe)
			reader.Close()
		}
		printOutcome(out, st, r)
		allPass = allPass && r.Pass()
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, st.pass.Render("All checks passed!"))
		return 0
	}
	fmt.Fprintln(out, st.fail.Render("Some checks failed. See details above."))
	return 1
}

func report(out io.Writer, st styles, n, total int, r Result) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "[%d/%d] %s\n", n, total, r.Name)
	printOutcome(out, st, r)
}

func printOutcome(out io.Writer, st styles, r Result) {
	if r.Pass() {
		fmt.Fprintf(out, "  %s %s\n", st.pass.Render("PASS:"), st.dim.Render(r.Detail))
		return
	}
	fmt.Fprintf(out, "  %s %v\n", st.fail.Render("FAIL:"), r.Err)
}

// ErrProbeTimeout means no bound chord was pressed in time.
var ErrProbeTimeout = errors.New("timeout waiting for a chord")

// ProbeChord reads r until one of bindings fires or timeout passes and
// returns the chord that fired.
func ProbeChord(r *input.Reader, bindings []hotkey.Binding, timeout time.Duration) (string, error) {
	m := hotkey.NewMatcher(bindings)
	deadline := time.Now().Add(timeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return "", ErrProbeTimeout
		}
		ready, err := r.Poll(left)
		if err != nil {
			return "", err
		}
		if !ready {
			continue
		}
		events, err := r.Next()
		if err != nil {
			return "", err
		}
		for _, e := range events {
			if fired := m.Feed(e); len(fired) > 0 {
				return fired[0].String() + " detected", nil
			}
		}
	}
}

func checkInput(o Options) (string, error) {
	r, err := input.Open(o.Input)
	if err != nil {
		return "", err
	}
	r.Close()
	return o.Input + " readable", nil
}

func checkGeometry(o Options) (string, error) {
	g, err := framebuffer.ReadGeometry(o.FramebufferSysfs)
	if err != nil {
		return "", err
	}
	if g.BitsPerPixel != 16 {
		return "", fmt.Errorf("%d bits per pixel, screenshots expect 16 (RGB565)", g.BitsPerPixel)
	}
	if row := framebuffer.Width * g.BytesPerPixel(); g.Stride < row {
		return "", fmt.Errorf("stride %d is shorter than a %d-pixel row (%d bytes)", g.Stride, framebuffer.Width, row)
	}
	return fmt.Sprintf("stride %d, %d bpp", g.Stride, g.BitsPerPixel), nil
}

func checkCapture(o Options) (string, error) {
	img, err := framebuffer.NewDevice(o.Framebuffer, o.FramebufferSysfs).Grab()
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	return fmt.Sprintf("%s decoded to %dx%d", o.Framebuffer, b.Dx(), b.Dy()), nil
}

func checkLED(o Options) (string, error) {
	l := led.New(o.LEDDir, o.LED)
	if o.Blink > 0 {
		err := led.Hold(l, func() error {
			time.Sleep(o.Blink)
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("led%d blinked", o.LED), nil
	}
	f, err := os.OpenFile(l.Path, os.O_WRONLY, 0)
	if err != nil {
		return "", err
	}
	f.Close()
	return l.Path + " writable", nil
}

// releaseLED returns the cleanup for an interrupted run: the blink may be
// holding the indicator on.
func releaseLED(o Options) func() {
	if o.Blink <= 0 {
		return func() {}
	}
	l := led.New(o.LEDDir, o.LED)
	return func() { l.Off() }
}

func checkInterpreter(o Options) (string, error) {
	fi, err := os.Stat(o.Interpreter)
	if err != nil {
		return "", err
	}
	if fi.IsDir() || fi.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("%s is not executable", o.Interpreter)
	}
	return o.Interpreter + " executable", nil
}

func checkScript(o Options) (string, error) {
	fi, err := os.Stat(o.QuicksaveScript)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", o.QuicksaveScript)
	}
	return o.QuicksaveScript + " present", nil
}

func checkScreenshotDir(o Options) (string, error) {
	if err := os.MkdirAll(o.ScreenshotDir, 0755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(o.ScreenshotDir, ".doctor-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return filepath.Clean(o.ScreenshotDir) + " writable", nil
}

func checkProcs(o Options) (string, error) {
	src, err := proctree.NewProcFS(o.Proc)
	if err != nil {
		return "", err
	}
	snap, err := src.Snapshot()
	if err != nil {
		return "", err
	}
	if pid, ok := snap.FindMarker(o.KillMarker); ok {
		return fmt.Sprintf("%d processes, launcher pid %d (%d in tree)", len(snap), pid, len(snap.Tree(pid))), nil
	}
	return fmt.Sprintf("%d processes, no launcher running", len(snap)), nil
}
