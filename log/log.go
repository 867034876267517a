package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	FileName  = "hotkeyd_log.txt"
	CrashName = "crash_log.txt"
	EnvPath   = "HOTKEYD_LOG_PATH"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string

	// stderr receives a copy of every record when Init is called verbose.
	stderr io.Writer = os.Stderr
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: HOTKEYD_LOG_PATH environment variable
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: SD card log directory, else XDG
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens hotkeyd_log.txt in the log directory. With verbose set every
// record is also written to stderr.
func Init(verbose bool) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if verbose {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: "15:04:05",
			NoColor:    true,
		})
	}
	diagLog = zerolog.New(out).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

// OpenCrashFile appends a session header to crash_log.txt and returns it
// for use as the runtime crash output.
func OpenCrashFile() (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, CrashName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	return f, nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func DaemonStart(device string, bindings []string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Int("bindings", len(bindings)).
		Str("table", strings.Join(bindings, ", ")).
		Msg("daemon_start")
}

func HotkeyFired(action, chord string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("action", action).
		Str("chord", chord).
		Msg("hotkey_fired")
}

// ActionRecord is what a finished action reports.
type ActionRecord struct {
	Action   string
	Path     string
	PIDs     []int
	Duration time.Duration
	Err      error
}

func ActionDone(r ActionRecord) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if r.Err != nil {
		ev = diagLog.Error().Err(r.Err)
	}
	ev = ev.Str("action", r.Action).
		Float64("ms", float64(r.Duration.Microseconds())/1000)
	if r.Path != "" {
		ev = ev.Str("path", r.Path)
	}
	if r.PIDs != nil {
		ev = ev.Ints("pids", r.PIDs)
	}
	ev.Msg("action_done")
}

func InputError(device string, err error) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("device", device).
		Err(err).
		Msg("input_error")
}

func DaemonStop(reason string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("reason", reason).
		Msg("daemon_stop")
}
