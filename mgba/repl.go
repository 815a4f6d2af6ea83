package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

// replPrompt is shown before each REPL line.
const replPrompt = "mgba> "

// runREPL reads lines from editor and executes them until .quit, end of
// input or cancellation of ctx. Command failures are printed and the loop
// continues; only a read error ends it with an error.
func (a *app) runREPL(ctx context.Context, editor lineReader) error {
	defer editor.Close()

	fmt.Fprintf(a.out, "%s\nConnected to %s (%s policy). Type '.help' for commands.\n",
		fullTitle(), a.cfg.Address(), a.cfg.Emulator.Policy)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := editor.GetLine(replPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}

		act, err := translateLine(line)
		if err != nil {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
			continue
		}
		if act.kind == actionQuit {
			return nil
		}

		if err := a.execute(ctx, act); err != nil {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
		}
	}
}

// execute performs one translated REPL action.
func (a *app) execute(ctx context.Context, act action) error {
	switch act.kind {
	case actionNone:
		return nil

	case actionHelp:
		printHelp(a.out, act.topic)
		return nil

	case actionKeys:
		printKeys(a.out)
		return nil

	case actionPress:
		hold := act.hold
		if hold == 0 {
			hold = a.cfg.Input.Hold
		}
		return a.ctrl.Press(ctx, act.keys[0], hold)

	case actionTap:
		return a.ctrl.PressSequence(ctx, act.keys, a.cfg.Input.Hold, a.cfg.Input.Gap)

	case actionDown:
		return a.ctrl.KeyDown(ctx, act.keys[0])

	case actionUp:
		return a.ctrl.KeyUp(ctx, act.keys[0])

	case actionShot:
		return a.capture(ctx, act.path, false)
	}
	return nil
}

// capture takes a screenshot to path, or to a generated path in the
// configured directory, and reports it on a.out.
func (a *app) capture(ctx context.Context, path string, asBase64 bool) error {
	var (
		data []byte
		err  error
	)
	if path == "" {
		path, data, err = a.ctrl.CaptureToDir(ctx, a.cfg.Screenshots.Dir)
	} else {
		if path, err = filepath.Abs(path); err != nil {
			return err
		}
		data, err = a.ctrl.Screenshot(ctx, path)
	}
	if err != nil {
		return err
	}

	if asBase64 {
		fmt.Fprintln(a.out, base64.StdEncoding.EncodeToString(data))
		return nil
	}
	fmt.Fprintf(a.out, "%s (%d bytes)\n", path, len(data))
	return nil
}
