package mgbaprotocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Request is a single operation sent to the emulator.
//
// Key is meaningful for OpKeyDown and OpKeyUp; Path for OpScreenshot.
type Request struct {
	Op   Opcode
	Key  KeyCode
	Path string
}

// NewScreenshotRequest creates a request asking the emulator to write the
// current frame to path.
func NewScreenshotRequest(path string) Request {
	return Request{Op: OpScreenshot, Path: path}
}

// NewKeyDownRequest creates a request that presses and holds a key.
func NewKeyDownRequest(key KeyCode) Request {
	return Request{Op: OpKeyDown, Key: key}
}

// NewKeyUpRequest creates a request that releases a key.
func NewKeyUpRequest(key KeyCode) Request {
	return Request{Op: OpKeyUp, Key: key}
}

// Encode returns the request in wire format.
//
//	screenshot: i32 1, i32 len(path), path bytes
//	key:        i32 op, i32 code
func (r Request) Encode() []byte {
	if r.Op == OpScreenshot {
		buf := make([]byte, headerSize+len(r.Path))
		binary.BigEndian.PutUint32(buf[0:4], uint32(r.Op))
		binary.BigEndian.PutUint32(buf[4:8], uint32(len(r.Path)))
		copy(buf[headerSize:], r.Path)
		return buf
	}

	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Op))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Key))
	return buf
}

// String returns a short description for log records.
func (r Request) String() string {
	switch r.Op {
	case OpScreenshot:
		return fmt.Sprintf("screenshot %s", r.Path)
	case OpKeyDown, OpKeyUp:
		return fmt.Sprintf("%s %s", r.Op, r.Key)
	default:
		return r.Op.String()
	}
}

// validate checks the request can be encoded and understood by the emulator.
func (r Request) validate() error {
	switch r.Op {
	case OpScreenshot:
		if r.Path == "" {
			return newInvalidArgumentError("screenshot path is required")
		}
		if len(r.Path) > MaxPathLength {
			return newInvalidArgumentError("screenshot path is %d bytes, limit is %d", len(r.Path), MaxPathLength)
		}
	case OpKeyDown, OpKeyUp:
		if !r.Key.Valid() {
			return newInvalidArgumentError("unknown key code %d", int32(r.Key))
		}
	default:
		return newInvalidArgumentError("unknown opcode %d", int32(r.Op))
	}
	return nil
}

// ReadRequest reads one request from r. It is the decoding counterpart of
// Request.Encode, used on the emulator side of a connection.
func ReadRequest(r io.Reader) (Request, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Request{}, err
	}

	op := Opcode(int32(binary.BigEndian.Uint32(header[0:4])))
	arg := int32(binary.BigEndian.Uint32(header[4:8]))

	switch op {
	case OpKeyDown, OpKeyUp:
		return Request{Op: op, Key: KeyCode(arg)}, nil
	case OpScreenshot:
		if arg < 0 || arg > MaxPathLength {
			return Request{}, newProtocolError(nil, "screenshot path length %d", arg)
		}
		path := make([]byte, arg)
		if _, err := io.ReadFull(r, path); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Request{}, err
		}
		return Request{Op: op, Path: string(path)}, nil
	default:
		return Request{}, newProtocolError(ErrUnknownOpcode, "opcode %d", int32(op))
	}
}
