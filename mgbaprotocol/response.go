package mgbaprotocol

import "encoding/binary"

// Response is the emulator's answer to a single request.
type Response struct {
	Status  int32
	Message string // Error text; empty for success
}

// NewOKResponse creates a successful response.
func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

// NewErrorResponse creates a failure response with the given status and text.
func NewErrorResponse(status int32, message string) Response {
	return Response{Status: status, Message: message}
}

// IsOK returns true if the emulator reported success.
func (r Response) IsOK() bool {
	return r.Status == StatusOK
}

// Err returns nil for a successful response and a *RemoteError otherwise.
func (r Response) Err() error {
	if r.IsOK() {
		return nil
	}
	return &RemoteError{Status: r.Status, Message: r.Message}
}

// Encode returns the response in wire format. A successful response is the
// bare status; a failure adds the length-prefixed error text.
func (r Response) Encode() []byte {
	if r.IsOK() {
		buf := make([]byte, statusSize)
		binary.BigEndian.PutUint32(buf, uint32(StatusOK))
		return buf
	}

	buf := make([]byte, headerSize+len(r.Message))
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Status))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(r.Message)))
	copy(buf[headerSize:], r.Message)
	return buf
}
