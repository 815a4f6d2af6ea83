package mgbaprotocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// DecoderState is a step of the response framing state machine.
//
//	AwaitingStatus -> Done                                   (status 0)
//	AwaitingStatus -> AwaitingErrorLength -> AwaitingErrorBody -> Done
type DecoderState int

const (
	// StateAwaitingStatus waits for the 4-byte status field.
	StateAwaitingStatus DecoderState = iota
	// StateAwaitingErrorLength waits for the 4-byte error length after a
	// non-zero status.
	StateAwaitingErrorLength
	// StateAwaitingErrorBody waits until the declared error text is buffered.
	StateAwaitingErrorBody
	// StateDone holds a complete response.
	StateDone
)

func (s DecoderState) String() string {
	switch s {
	case StateAwaitingStatus:
		return "awaiting-status"
	case StateAwaitingErrorLength:
		return "awaiting-error-length"
	case StateAwaitingErrorBody:
		return "awaiting-error-body"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResponseDecoder reassembles one response from arbitrarily split chunks.
//
// The transport gives no guarantee that reads line up with message
// boundaries, so the decoder buffers everything it is fed and determines the
// message length in two phases: first the status, then, only for failures,
// the error length.
type ResponseDecoder struct {
	buf            []byte
	state          DecoderState
	status         int32
	total          int
	maxErrorLength int
	err            error
}

// NewResponseDecoder creates a decoder waiting for a status field.
func NewResponseDecoder() *ResponseDecoder {
	return &ResponseDecoder{maxErrorLength: MaxErrorLength}
}

// State returns the current framing state.
func (d *ResponseDecoder) State() DecoderState {
	return d.state
}

// Buffered returns the number of bytes fed so far.
func (d *ResponseDecoder) Buffered() int {
	return len(d.buf)
}

// Feed appends a chunk and advances the state machine. It reports true once
// a complete response is buffered. Any byte beyond the declared message
// length is a protocol violation, whether it arrives in the completing chunk
// or a later one.
func (d *ResponseDecoder) Feed(chunk []byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	d.buf = append(d.buf, chunk...)

	for {
		switch d.state {
		case StateAwaitingStatus:
			if len(d.buf) < statusSize {
				return false, nil
			}
			d.status = int32(binary.BigEndian.Uint32(d.buf[0:4]))
			if d.status == StatusOK {
				d.total = statusSize
				d.state = StateDone
			} else {
				d.state = StateAwaitingErrorLength
			}

		case StateAwaitingErrorLength:
			if len(d.buf) < headerSize {
				return false, nil
			}
			n := int32(binary.BigEndian.Uint32(d.buf[4:8]))
			if n < 0 || int(n) > d.maxErrorLength {
				return false, d.fail(newProtocolError(ErrErrorTooLong, "declared error length %d", n))
			}
			d.total = headerSize + int(n)
			d.state = StateAwaitingErrorBody

		case StateAwaitingErrorBody:
			if len(d.buf) < d.total {
				return false, nil
			}
			d.state = StateDone

		case StateDone:
			if len(d.buf) > d.total {
				return false, d.fail(newProtocolError(ErrTrailingBytes, "%d bytes after a %d-byte response", len(d.buf)-d.total, d.total))
			}
			return true, nil
		}
	}
}

// Response returns the decoded response. It fails until Feed has reported
// completion.
func (d *ResponseDecoder) Response() (Response, error) {
	if d.err != nil {
		return Response{}, d.err
	}
	if d.state != StateDone {
		return Response{}, io.ErrUnexpectedEOF
	}
	if d.status == StatusOK {
		return NewOKResponse(), nil
	}
	return NewErrorResponse(d.status, string(d.buf[headerSize:d.total])), nil
}

// Finish is called when the stream ends. A decoder that has not reached
// StateDone yields io.ErrUnexpectedEOF so truncated input never decodes as
// success.
func (d *ResponseDecoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.state != StateDone {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (d *ResponseDecoder) fail(err error) error {
	d.err = err
	return err
}

// ReadResponse reads from r until one complete response is decoded.
// Reads use a buffer of bufSize bytes (DefaultReadBufferSize if not positive).
//
// Errors from r are returned as-is, except that an end of stream before the
// response is complete becomes io.ErrUnexpectedEOF. Framing violations are
// returned as *ProtocolError.
func ReadResponse(r io.Reader, bufSize int) (Response, error) {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	dec := NewResponseDecoder()
	chunk := make([]byte, bufSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			done, ferr := dec.Feed(chunk[:n])
			if ferr != nil {
				return Response{}, ferr
			}
			if done {
				return dec.Response()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Response{}, dec.Finish()
			}
			return Response{}, err
		}
	}
}
