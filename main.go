package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hotkeyd/action"
	"hotkeyd/doctor"
	"hotkeyd/framebuffer"
	"hotkeyd/hotkey"
	"hotkeyd/input"
	"hotkeyd/led"
	"hotkeyd/log"
	"hotkeyd/proctree"
	"hotkeyd/shutdown"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()

	root := &cobra.Command{
		Use:   "hotkeyd",
		Short: "Handheld hotkey daemon",
		Long: `hotkeyd watches the handheld's buttons and runs an action when a chord
is pressed: SELECT+R2 saves a screenshot, SELECT+L2 quicksaves and
MENU+SELECT closes the running game.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cfg)
		},
	}
	cfg.bindFlags(root)

	// Add subcommands (alphabetical)
	root.AddCommand(bindingsCmd())
	root.AddCommand(doctorCmd(&cfg))
	root.AddCommand(killCmd(&cfg))
	root.AddCommand(replayCmd())
	root.AddCommand(screenshotCmd(&cfg))
	root.AddCommand(versionCmd())
	return root
}

func setupLogging(cfg Config) error {
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if crashFile, err := log.OpenCrashFile(); err == nil {
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}
	if err := log.Init(cfg.Verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	return nil
}

func newDispatcher(cfg Config) (*action.Dispatcher, error) {
	procs, err := proctree.New(cfg.Proc)
	if err != nil {
		return nil, err
	}
	screen := framebuffer.NewDevice(cfg.Framebuffer, cfg.FramebufferSysfs)
	return action.New(cfg.actionConfig(), screen, led.New(cfg.LEDDir, cfg.LED), procs), nil
}

func runDaemon(cfg Config) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer log.Close()

	// A previous instance may have died with the indicator lit.
	if err := led.New(cfg.LEDDir, cfg.LED).Off(); err != nil {
		log.Warnf("could not reset led%d: %v", cfg.LED, err)
	}

	disp, err := newDispatcher(cfg)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	reader, err := input.Open(cfg.Input)
	if err != nil {
		log.InputError(cfg.Input, err)
		return err
	}

	bindings := hotkey.DefaultBindings()
	d := newDaemon(reader, cfg.Input, bindings, disp)
	stop := shutdown.OnSignal(func(sig os.Signal) {
		d.Stop(sig.String())
	})
	defer stop()

	log.DaemonStart(cfg.Input, bindingNames(bindings))
	err = d.Run()
	reason := d.StopReason()
	if err != nil {
		reason = err.Error()
		reader.Close()
	}
	log.DaemonStop(reason)
	return err
}

func screenshotCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "screenshot [output]",
		Short: "Capture the display to a PNG and exit",
		Long: `Capture the framebuffer once. With an output path the PNG is written
there; without one it goes to the screenshot directory under a timestamped
name with the LED lit, exactly as the SELECT+R2 chord does.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen := framebuffer.NewDevice(cfg.Framebuffer, cfg.FramebufferSysfs)
			if len(args) == 1 {
				if err := screen.Capture(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), args[0])
				return nil
			}
			disp := action.New(cfg.actionConfig(), screen, led.New(cfg.LEDDir, cfg.LED), nil)
			path, err := disp.Screenshot()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func killCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Terminate the running game and its children",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := proctree.New(cfg.Proc)
			if err != nil {
				return err
			}
			pids, err := procs.Terminate(proctree.Marker)
			out := cmd.OutOrStdout()
			if len(pids) == 0 && err == nil {
				fmt.Fprintln(out, "no launcher running")
				return nil
			}
			for _, pid := range pids {
				fmt.Fprintf(out, "SIGTERM %d\n", pid)
			}
			return err
		},
	}
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Run the chord matcher over scripted key events from stdin",
		Long: `Read one transition per line from stdin and print every action the
daemon would run, without running it. Lines look like:

  DOWN SELECT
  DOWN R2
  UP SELECT

Keys are button labels (SELECT, R2, MENU), kernel names (KEY_RIGHTCTRL)
or decimal codes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.InOrStdin(), cmd.OutOrStdout(), hotkey.DefaultBindings())
		},
	}
}

func doctorCmd(cfg *Config) *cobra.Command {
	var probe, blink time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check devices and paths the daemon needs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(doctor.Run(doctor.Options{
				Input:            cfg.Input,
				Framebuffer:      cfg.Framebuffer,
				FramebufferSysfs: cfg.FramebufferSysfs,
				LEDDir:           cfg.LEDDir,
				LED:              cfg.LED,
				Interpreter:      cfg.Interpreter,
				QuicksaveScript:  cfg.QuicksaveScript,
				ScreenshotDir:    cfg.ScreenshotDir,
				Proc:             cfg.Proc,
				KillMarker:       proctree.Marker,
				Blink:            blink,
				Probe:            probe,
				Color:            doctor.IsTerminal(os.Stdout),
			}, os.Stdout))
		},
	}
	cmd.Flags().DurationVar(&probe, "probe", 10*time.Second, "wait this long for a chord press (0 skips)")
	cmd.Flags().DurationVar(&blink, "blink", 500*time.Millisecond, "light the LED this long (0 only checks the trigger)")
	return cmd
}

func bindingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "List the chord table",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, b := range hotkey.DefaultBindings() {
				keys := make([]string, len(b.Chord))
				for i, k := range b.Chord {
					keys[i] = k.String()
				}
				fmt.Fprintf(out, "%-12s %-28s %s\n", b.ChordString(), strings.Join(keys, "+"), b.Action)
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hotkeyd %s\n", version)
			fmt.Fprintf(out, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "  Go: %s\n", runtime.Version())
		},
	}
}
