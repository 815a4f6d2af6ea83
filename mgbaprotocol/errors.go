package mgbaprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the control protocol.
var (
	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates connect was called while already connected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrClientClosed indicates connect was called on a disconnected client.
	// Clients are single-use; create a new one with NewClient.
	ErrClientClosed = errors.New("client closed")

	// ErrInvalidArgument indicates a caller-supplied value was rejected
	// before anything was sent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTrailingBytes indicates bytes arrived after a complete response.
	ErrTrailingBytes = errors.New("trailing bytes after response")

	// ErrErrorTooLong indicates a response declared an error length outside
	// 0..MaxErrorLength.
	ErrErrorTooLong = errors.New("error length out of range")

	// ErrUnknownOpcode indicates a request carried an opcode outside 1..3.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// ConnectionError represents a failure to establish a connection.
type ConnectionError struct {
	Address string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Cause)
	}
	return fmt.Sprintf("connection to %s failed", e.Address)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// TransportError represents a socket failure after the connection was
// established: a failed write, a read error, a deadline, a cancelled
// context, or the stream closing before a full response arrived.
type TransportError struct {
	Op    string // "write" or "read"
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RemoteError is a failure reported by the emulator through a non-zero
// response status.
type RemoteError struct {
	Status  int32
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("emulator returned status %d", e.Status)
	}
	return fmt.Sprintf("emulator error (status %d): %s", e.Status, e.Message)
}

// ProtocolError represents bytes on the wire that violate the framing rules.
type ProtocolError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol violation: %s: %v", e.Message, e.Cause)
	}
	return "protocol violation: " + e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

func newProtocolError(cause error, format string, args ...any) error {
	return &ProtocolError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

func newInvalidArgumentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
