package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hotkeyd/action"
	"hotkeyd/framebuffer"
	"hotkeyd/input"
	"hotkeyd/led"
	"hotkeyd/proctree"
)

// Config is every tunable path. Flags override HOTKEYD_* environment
// variables, which override the on-device defaults.
type Config struct {
	Input            string
	Framebuffer      string
	FramebufferSysfs string
	LEDDir           string
	LED              int
	ScreenshotDir    string
	Interpreter      string
	QuicksaveScript  string
	Proc             string
	LogPath          string
	Verbose          bool
}

func defaultConfig() Config {
	return Config{
		Input:            getenvDefault("HOTKEYD_INPUT", input.DefaultDevice),
		Framebuffer:      getenvDefault("HOTKEYD_FB", framebuffer.DefaultDevice),
		FramebufferSysfs: getenvDefault("HOTKEYD_FB_SYSFS", framebuffer.DefaultSysfs),
		LEDDir:           getenvDefault("HOTKEYD_LED_DIR", led.DefaultDir),
		LED:              getenvIntDefault("HOTKEYD_LED", 2),
		ScreenshotDir:    getenvDefault("HOTKEYD_SCREENSHOT_DIR", action.DefaultScreenshotDir),
		Interpreter:      getenvDefault("HOTKEYD_INTERPRETER", action.DefaultInterpreter),
		QuicksaveScript:  getenvDefault("HOTKEYD_QUICKSAVE_SCRIPT", action.DefaultQuicksaveScript),
		Proc:             getenvDefault("HOTKEYD_PROC", "/proc"),
		// HOTKEYD_LOG_PATH is resolved by the log package.
		Verbose: getenvBoolDefault("HOTKEYD_VERBOSE", false),
	}
}

func (c *Config) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&c.Input, "input", c.Input, "input event device")
	f.StringVar(&c.Framebuffer, "fb", c.Framebuffer, "framebuffer device")
	f.StringVar(&c.FramebufferSysfs, "fb-sysfs", c.FramebufferSysfs, "framebuffer sysfs directory (stride, bits_per_pixel)")
	f.StringVar(&c.LEDDir, "led-dir", c.LEDDir, "directory holding ledN/trigger")
	f.IntVar(&c.LED, "led", c.LED, "indicator LED index")
	f.StringVar(&c.ScreenshotDir, "screenshot-dir", c.ScreenshotDir, "screenshot output directory")
	f.StringVar(&c.Interpreter, "interpreter", c.Interpreter, "quicksave script interpreter")
	f.StringVar(&c.QuicksaveScript, "quicksave-script", c.QuicksaveScript, "quicksave script")
	f.StringVar(&c.Proc, "proc", c.Proc, "procfs mount point")
	f.StringVar(&c.LogPath, "logpath", c.LogPath, "log directory path (default: SD card log directory, use ./ for current dir)")
	f.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "also log to stderr")
}

func (c Config) validate() error {
	if c.LED < 0 {
		return fmt.Errorf("--led must not be negative, got %d", c.LED)
	}
	for name, v := range map[string]string{
		"--input":            c.Input,
		"--fb":               c.Framebuffer,
		"--fb-sysfs":         c.FramebufferSysfs,
		"--interpreter":      c.Interpreter,
		"--quicksave-script": c.QuicksaveScript,
		"--screenshot-dir":   c.ScreenshotDir,
		"--proc":             c.Proc,
	} {
		if v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

func (c Config) actionConfig() action.Config {
	return action.Config{
		ScreenshotDir:   c.ScreenshotDir,
		Interpreter:     c.Interpreter,
		QuicksaveScript: c.QuicksaveScript,
		KillMarker:      proctree.Marker,
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out int
	_, err := fmt.Sscanf(v, "%d", &out)
	if err != nil {
		return def
	}
	return out
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "1" || v == "true" || v == "yes" || v == "y" {
		return true
	}
	if v == "0" || v == "false" || v == "no" || v == "n" {
		return false
	}
	return def
}
