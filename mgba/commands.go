package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gbaagent/mgba/mgbaprotocol"
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfg  *Config
	log  *slog.Logger
	ctrl *mgbaprotocol.Controller

	out    io.Writer
	errOut io.Writer

	// newEditor creates the REPL line source; replaced in tests.
	newEditor func() lineReader
}

// newRootCommand builds the command tree writing to out and errOut.
func newRootCommand(out, errOut io.Writer) *cobra.Command {
	return newApp(out, errOut).rootCommand()
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:       out,
		errOut:    errOut,
		newEditor: func() lineReader { return NewLineEditor() },
	}
}

func (a *app) rootCommand() *cobra.Command {
	out, errOut := a.out, a.errOut

	root := &cobra.Command{
		Use:   appName,
		Short: "Control an mGBA emulator over its Lua control socket",
		Long: `mgba drives a Game Boy Advance game running in mGBA through the
control script's TCP socket: press and release buttons, and capture the
screen to a PNG file.

Run without a subcommand in a terminal to start the interactive REPL.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.ctrl != nil {
				return a.ctrl.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return cmd.Help()
			}
			return a.runREPL(cmd.Context(), a.newEditor())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetVersionTemplate(fmt.Sprintf("%s\n", fullTitle()))

	pf := root.PersistentFlags()
	pf.String("config", defaultConfigFile, "Path to the YAML config file")
	pf.String("host", mgbaprotocol.DefaultHost, "Emulator control script host")
	pf.Int("port", mgbaprotocol.DefaultPort, "Emulator control script port")
	pf.Duration("timeout", 0, "Response timeout per request (0 waits forever)")
	pf.Duration("dial-timeout", mgbaprotocol.DefaultDialTimeout, "Connection timeout")
	pf.String("policy", mgbaprotocol.PerOperation.String(), "Connection policy: per-operation or session")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")

	root.AddCommand(
		a.newPressCommand(),
		a.newKeyCommand("down", "Press and hold a key", func(cmd *cobra.Command, key mgbaprotocol.KeyCode) error {
			return a.ctrl.KeyDown(cmd.Context(), key)
		}),
		a.newKeyCommand("up", "Release a held key", func(cmd *cobra.Command, key mgbaprotocol.KeyCode) error {
			return a.ctrl.KeyUp(cmd.Context(), key)
		}),
		a.newScreenshotCommand(),
		a.newKeysCommand(),
		a.newWaitCommand(),
		a.newREPLCommand(),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger and
// controller.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()
	path, err := fs.GetString("config")
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(path, fs.Changed("config"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(a.errOut, cfg.Log.Level)
	if err != nil {
		return err
	}

	ctrl, err := cfg.NewController(logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	a.ctrl = ctrl
	a.log.Debug("configuration loaded", "addr", cfg.Address(), "policy", cfg.Emulator.Policy)
	return nil
}

func (a *app) newPressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "press KEY...",
		Short: "Press and release one or more keys in order",
		Long: `Press each key, hold it, release it, and wait between keys.

Keys: ` + strings.Join(keyNames(), " "),
		Example: "  mgba press START\n  mgba press --hold 300ms DOWN DOWN A",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			return a.ctrl.PressSequence(cmd.Context(), keys, a.cfg.Input.Hold, a.cfg.Input.Gap)
		},
	}
	cmd.Flags().Duration("hold", DefaultConfig().Input.Hold, "How long each key is held")
	cmd.Flags().Duration("gap", DefaultConfig().Input.Gap, "Pause between keys")
	return cmd
}

func (a *app) newKeyCommand(use, short string, run func(*cobra.Command, mgbaprotocol.KeyCode) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := mgbaprotocol.ParseKey(args[0])
			if err != nil {
				return err
			}
			return run(cmd, key)
		},
	}
}

func (a *app) newScreenshotCommand() *cobra.Command {
	var asBase64 bool
	cmd := &cobra.Command{
		Use:     "screenshot [PATH]",
		Aliases: []string{"shot"},
		Short:   "Capture the emulator screen to a PNG file",
		Long: `Ask the emulator to write the current frame as a PNG. Without PATH a
uniquely named file is created in the screenshots directory. The path and
size are printed, or with --base64 the encoded image.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.capture(cmd.Context(), path, asBase64)
		},
	}
	cmd.Flags().String("dir", DefaultConfig().Screenshots.Dir, "Directory for generated screenshot names")
	cmd.Flags().BoolVar(&asBase64, "base64", false, "Print the image as base64 instead of its path")
	return cmd
}

func (a *app) newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List key names and protocol codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeys(a.out)
			return nil
		},
	}
}

func (a *app) newWaitCommand() *cobra.Command {
	var timeout, interval = emulatorWaitTimeout, emulatorPollInterval
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the emulator control socket accepts connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := a.cfg.Address()
			a.log.Info("waiting for emulator", "addr", addr, "for", timeout)
			if err := waitForEmulator(cmd.Context(), addr, timeout, interval); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Emulator is listening on %s\n", addr)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "for", timeout, "How long to keep trying")
	cmd.Flags().DurationVar(&interval, "interval", interval, "Time between attempts")
	return cmd
}

func (a *app) newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd.Context(), a.newEditor())
		},
	}
}
