// =============================================================================
// translate.go - REPL Line Translation
// =============================================================================
//
// Converts what the user types at the REPL prompt into an action for the
// controller. The grammar is deliberately small:
//
//	press KEY [HOLD]      press and release one key (HOLD like 250ms or 250)
//	KEY [HOLD]            shorthand for press
//	tap KEY KEY ...       press several keys in order
//	down KEY / up KEY     hold or release a key
//	shot [PATH]           capture the screen
//	keys                  list the key names
//	.help [TOPIC]         show help
//	.quit                 leave the REPL
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gbaagent/mgba/mgbaprotocol"
)

// actionKind identifies what a REPL line asks for.
type actionKind int

const (
	actionNone actionKind = iota
	actionPress
	actionTap
	actionDown
	actionUp
	actionShot
	actionKeys
	actionHelp
	actionQuit
)

// action is a translated REPL line.
type action struct {
	kind  actionKind
	keys  []mgbaprotocol.KeyCode
	hold  time.Duration // zero means the configured hold
	path  string        // empty means a generated path in the screenshot dir
	topic string
}

// translateLine parses one REPL line. Blank lines translate to actionNone.
func translateLine(line string) (action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return action{kind: actionNone}, nil
	}

	word := strings.ToLower(fields[0])
	args := fields[1:]

	switch word {
	case ".quit", ".exit":
		return action{kind: actionQuit}, nil

	case ".help", "help", "?":
		topic := ""
		if len(args) > 0 {
			topic = strings.ToLower(args[0])
		}
		return action{kind: actionHelp, topic: topic}, nil

	case "keys":
		return action{kind: actionKeys}, nil

	case "press", "p":
		if len(args) == 0 {
			return action{}, errors.New("press requires a key")
		}
		return translatePress(args[0], args[1:])

	case "tap":
		if len(args) == 0 {
			return action{}, errors.New("tap requires at least one key")
		}
		keys, err := parseKeys(args)
		if err != nil {
			return action{}, err
		}
		return action{kind: actionTap, keys: keys}, nil

	case "down", "up":
		if len(args) != 1 {
			return action{}, fmt.Errorf("%s requires exactly one key", word)
		}
		key, err := mgbaprotocol.ParseKey(args[0])
		if err != nil {
			return action{}, err
		}
		kind := actionDown
		if word == "up" {
			kind = actionUp
		}
		return action{kind: kind, keys: []mgbaprotocol.KeyCode{key}}, nil

	case "shot", "screenshot":
		if len(args) > 1 {
			return action{}, errors.New("shot takes at most one path")
		}
		a := action{kind: actionShot}
		if len(args) == 1 {
			a.path = args[0]
		}
		return a, nil
	}

	// A bare key name is a press. "UP" and "DOWN" are also commands above,
	// so they need the explicit "press" form.
	if _, err := mgbaprotocol.ParseKey(word); err == nil {
		return translatePress(fields[0], args)
	}

	return action{}, fmt.Errorf("unknown command '%s' (type .help)", fields[0])
}

func translatePress(keyName string, rest []string) (action, error) {
	key, err := mgbaprotocol.ParseKey(keyName)
	if err != nil {
		return action{}, err
	}
	a := action{kind: actionPress, keys: []mgbaprotocol.KeyCode{key}}

	switch len(rest) {
	case 0:
	case 1:
		a.hold, err = parseHold(rest[0])
		if err != nil {
			return action{}, err
		}
	default:
		return action{}, errors.New("press takes a key and an optional hold duration")
	}
	return a, nil
}

func parseKeys(names []string) ([]mgbaprotocol.KeyCode, error) {
	keys := make([]mgbaprotocol.KeyCode, 0, len(names))
	for _, name := range names {
		key, err := mgbaprotocol.ParseKey(name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// parseHold accepts a Go duration ("250ms", "1s") or a bare number of
// milliseconds ("250").
func parseHold(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("invalid hold duration '%s'", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid hold duration '%s'", s)
	}
	return d, nil
}
