package mgbaprotocol

import (
	"net"
	"strconv"
	"time"
)

// Protocol constants matching the mGBA control script.
const (
	// DefaultHost is the host the control script listens on.
	DefaultHost = "localhost"

	// DefaultPort is the TCP port the control script listens on.
	DefaultPort = 8888

	// StatusOK is the response status for a successful operation.
	StatusOK int32 = 0

	// MaxErrorLength bounds the error text a response may declare. Longer
	// declarations are treated as a protocol violation.
	MaxErrorLength = 64 * 1024

	// MaxPathLength is the longest screenshot path, in bytes, a request may carry.
	MaxPathLength = 4096

	// DefaultDialTimeout is the timeout for establishing connections.
	DefaultDialTimeout = 5 * time.Second

	// DefaultReadBufferSize is the size of each read from the socket.
	DefaultReadBufferSize = 512

	// statusSize and headerSize are the fixed prefix lengths of a response.
	statusSize = 4
	headerSize = 8
)

// Opcode identifies the operation a request asks the emulator to perform.
type Opcode int32

const (
	// OpScreenshot asks the emulator to write a screenshot to a path.
	OpScreenshot Opcode = 1
	// OpKeyDown presses a key and keeps it held.
	OpKeyDown Opcode = 2
	// OpKeyUp releases a held key.
	OpKeyUp Opcode = 3
)

// String returns the lowercase operation name used in log records.
func (o Opcode) String() string {
	switch o {
	case OpScreenshot:
		return "screenshot"
	case OpKeyDown:
		return "keydown"
	case OpKeyUp:
		return "keyup"
	default:
		return "opcode(" + strconv.Itoa(int(o)) + ")"
	}
}

// Address joins a host and port into a dialable address.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// DefaultAddress returns the address of a control script with default settings.
func DefaultAddress() string {
	return Address(DefaultHost, DefaultPort)
}
