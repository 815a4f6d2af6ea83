package mgbaprotocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var helloFailure = []byte{0, 0, 0, 1, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}

// decodeChunks feeds data to a fresh decoder in pieces of at most size bytes.
func decodeChunks(t *testing.T, data []byte, size int) (Response, error) {
	t.Helper()

	dec := NewResponseDecoder()
	for len(data) > 0 {
		n := min(size, len(data))
		done, err := dec.Feed(data[:n])
		if err != nil {
			return Response{}, err
		}
		data = data[n:]
		if done {
			require.Empty(t, data, "decoder finished with %d bytes left", len(data))
			return dec.Response()
		}
	}
	return Response{}, dec.Finish()
}

func TestDecodeSuccess(t *testing.T) {
	resp, err := decodeChunks(t, []byte{0, 0, 0, 0}, 4)
	require.NoError(t, err)
	assert.True(t, resp.IsOK())
	assert.Empty(t, resp.Message)
}

func TestDecodeFailure(t *testing.T) {
	resp, err := decodeChunks(t, helloFailure, len(helloFailure))
	require.NoError(t, err)
	assert.False(t, resp.IsOK())
	assert.Equal(t, int32(1), resp.Status)
	assert.Equal(t, "hello", resp.Message)
}

func TestDecodeFailureWithEmptyMessage(t *testing.T) {
	resp, err := decodeChunks(t, []byte{0, 0, 0, 2, 0, 0, 0, 0}, 8)
	require.NoError(t, err)
	assert.Equal(t, NewErrorResponse(2, ""), resp)
}

// TestDecodeChunkBoundaryIndependence delivers each response in every chunk
// size from one byte up to the whole message.
func TestDecodeChunkBoundaryIndependence(t *testing.T) {
	messages := []Response{
		NewOKResponse(),
		NewErrorResponse(1, "hello"),
		NewErrorResponse(-1, "screenshot failed: 无法写入"),
		NewErrorResponse(7, strings.Repeat("x", 300)),
		NewErrorResponse(0x01020304, ""),
	}

	for _, want := range messages {
		data := want.Encode()
		for size := 1; size <= len(data); size++ {
			t.Run(fmt.Sprintf("status%d/chunk%d", want.Status, size), func(t *testing.T) {
				got, err := decodeChunks(t, data, size)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}

// TestDecodeSplitAtEveryOffset splits the failure response into two chunks
// at every possible offset.
func TestDecodeSplitAtEveryOffset(t *testing.T) {
	for i := 1; i < len(helloFailure); i++ {
		dec := NewResponseDecoder()

		done, err := dec.Feed(helloFailure[:i])
		require.NoError(t, err)
		require.False(t, done, "done after %d bytes", i)

		done, err = dec.Feed(helloFailure[i:])
		require.NoError(t, err)
		require.True(t, done, "not done after split at %d", i)

		resp, err := dec.Response()
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Message)
	}
}

func TestDecoderStates(t *testing.T) {
	dec := NewResponseDecoder()
	assert.Equal(t, StateAwaitingStatus, dec.State())

	feed := func(b ...byte) bool {
		done, err := dec.Feed(b)
		require.NoError(t, err)
		return done
	}

	assert.False(t, feed(0, 0, 0))
	assert.Equal(t, StateAwaitingStatus, dec.State())

	// Exactly four bytes of a non-zero status.
	assert.False(t, feed(1))
	assert.Equal(t, StateAwaitingErrorLength, dec.State())

	assert.False(t, feed(0, 0, 0))
	assert.Equal(t, StateAwaitingErrorLength, dec.State())

	// Exactly eight bytes.
	assert.False(t, feed(5))
	assert.Equal(t, StateAwaitingErrorBody, dec.State())
	assert.Equal(t, 8, dec.Buffered())

	assert.False(t, feed('h', 'e'))
	assert.Equal(t, StateAwaitingErrorBody, dec.State())

	assert.True(t, feed('l', 'l', 'o'))
	assert.Equal(t, StateDone, dec.State())
	assert.Equal(t, 13, dec.Buffered())
}

func TestDecoderSuccessCompletesAtFourBytes(t *testing.T) {
	dec := NewResponseDecoder()

	done, err := dec.Feed([]byte{0, 0, 0})
	require.NoError(t, err)
	assert.False(t, done)

	done, err = dec.Feed([]byte{0})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StateDone, dec.State())
}

func TestDecoderStateString(t *testing.T) {
	assert.Equal(t, "awaiting-status", StateAwaitingStatus.String())
	assert.Equal(t, "awaiting-error-length", StateAwaitingErrorLength.String())
	assert.Equal(t, "awaiting-error-body", StateAwaitingErrorBody.String())
	assert.Equal(t, "done", StateDone.String())
}

func TestDecodeTrailingBytes(t *testing.T) {
	t.Run("same chunk", func(t *testing.T) {
		dec := NewResponseDecoder()
		_, err := dec.Feed([]byte{0, 0, 0, 0, 9})

		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, ErrTrailingBytes)
	})

	t.Run("later chunk", func(t *testing.T) {
		dec := NewResponseDecoder()
		done, err := dec.Feed(helloFailure)
		require.NoError(t, err)
		require.True(t, done)

		_, err = dec.Feed([]byte{0})
		assert.ErrorIs(t, err, ErrTrailingBytes)

		_, err = dec.Response()
		assert.ErrorIs(t, err, ErrTrailingBytes)
	})
}

func TestDecodeErrorLengthOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		length []byte
	}{
		{"too long", []byte{0, 1, 0, 1}},
		{"negative", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte{0, 0, 0, 1}, tt.length...)
			_, err := decodeChunks(t, data, 1)

			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, ErrErrorTooLong)
		})
	}
}

func TestDecoderFinishIncomplete(t *testing.T) {
	inputs := [][]byte{
		{},
		{0, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 0, 1, 0, 0, 0, 5, 'h'},
	}

	for _, in := range inputs {
		dec := NewResponseDecoder()
		done, err := dec.Feed(in)
		require.NoError(t, err)
		require.False(t, done)

		assert.ErrorIs(t, dec.Finish(), io.ErrUnexpectedEOF, "input %v", in)

		_, err = dec.Response()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}
}

func TestReadResponseOneByteAtATime(t *testing.T) {
	resp, err := ReadResponse(iotest.OneByteReader(bytes.NewReader(helloFailure)), 64)
	require.NoError(t, err)
	assert.Equal(t, NewErrorResponse(1, "hello"), resp)
}

func TestReadResponseStreamClosedEarly(t *testing.T) {
	_, err := ReadResponse(bytes.NewReader([]byte{0, 0, 0}), 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadResponseReaderError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(bytes.NewReader([]byte{0, 0}), iotest.ErrReader(boom))

	_, err := ReadResponse(r, 0)
	assert.ErrorIs(t, err, boom)
}

func TestReadResponseDataWithEOF(t *testing.T) {
	// DataErrReader returns the final bytes together with io.EOF.
	r := iotest.DataErrReader(bytes.NewReader([]byte{0, 0, 0, 0}))

	resp, err := ReadResponse(r, 0)
	require.NoError(t, err)
	assert.True(t, resp.IsOK())
}
