package mgbaprotocol

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyCode is a Game Boy Advance button as numbered by the control script.
type KeyCode int32

// Key codes shared with the control script. The numbering is part of the
// wire protocol and must not change.
const (
	KeyA KeyCode = iota
	KeyB
	KeySelect
	KeyStart
	KeyRight
	KeyLeft
	KeyUp
	KeyDown
	KeyR
	KeyL
)

var keyNames = [...]string{
	KeyA:      "A",
	KeyB:      "B",
	KeySelect: "SELECT",
	KeyStart:  "START",
	KeyRight:  "RIGHT",
	KeyLeft:   "LEFT",
	KeyUp:     "UP",
	KeyDown:   "DOWN",
	KeyR:      "R",
	KeyL:      "L",
}

// AllKeys returns every key code in protocol order.
func AllKeys() []KeyCode {
	keys := make([]KeyCode, len(keyNames))
	for i := range keyNames {
		keys[i] = KeyCode(i)
	}
	return keys
}

// Valid reports whether k is one of the ten known buttons.
func (k KeyCode) Valid() bool {
	return k >= KeyA && int(k) < len(keyNames)
}

// String returns the symbolic button name, e.g. "START".
func (k KeyCode) String() string {
	if !k.Valid() {
		return "KeyCode(" + strconv.Itoa(int(k)) + ")"
	}
	return keyNames[k]
}

// ParseKey converts a symbolic button name into its key code.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseKey(name string) (KeyCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range keyNames {
		if n == upper {
			return KeyCode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown key %q", ErrInvalidArgument, name)
}
