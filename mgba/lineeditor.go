// =============================================================================
// lineeditor.go - Interactive Line Editing
// =============================================================================
//
// Wraps github.com/ergochat/readline to give the REPL history, cursor
// movement and Ctrl-R search when attached to a terminal. When stdin is a
// pipe (scripts, tests, Emacs comint) it falls back to a plain scanner so
// that no terminal escape sequences are emitted.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is stored in the user's home directory.
	historyFileName = ".mgba_history"

	// historySize is the number of lines kept in the history file.
	historySize = 500
)

// lineReader is what the REPL needs from a line source.
type lineReader interface {
	GetLine(prompt string) (string, error)
	Close()
}

// LineEditor reads REPL input with readline in a terminal and a scanner
// otherwise.
type LineEditor struct {
	interactive bool

	// rl is the readline instance (nil in non-interactive mode).
	rl *readline.Instance

	// scanner reads from in (nil in interactive mode).
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLineEditor creates a line editor for stdin.
func NewLineEditor() *LineEditor {
	isInteractive := term.IsTerminal(int(os.Stdin.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return newScannerEditor(os.Stdin, os.Stdout)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath(),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
		Prompt:                 "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(os.Stdin, os.Stdout)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
	}
}

// newScannerEditor creates a non-interactive editor reading lines from in
// and writing prompts to out.
func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		interactive: false,
		scanner:     bufio.NewScanner(in),
		out:         out,
	}
}

// GetLine displays prompt and reads one line. It returns io.EOF on Ctrl-D,
// Ctrl-C at an empty prompt, or end of input.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close releases the terminal. Safe to call more than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}
