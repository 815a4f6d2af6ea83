// Package mgbaprotocol provides a Go implementation of the binary control
// protocol spoken by the mGBA Lua control script.
//
// The script listens on a TCP port (localhost:8888 by default) and accepts
// small length-prefixed requests to press and release the Game Boy Advance
// buttons and to write a screenshot of the current frame to a file.
//
// # Protocol Overview
//
// All integers are 32-bit big-endian.
//
//	Screenshot request:  i32 1, i32 pathLen, pathLen bytes of UTF-8 path
//	Key-down request:    i32 2, i32 keyCode
//	Key-up request:      i32 3, i32 keyCode
//	Success response:    i32 0
//	Error response:      i32 status (non-zero), i32 errLen, errLen bytes
//
// A screenshot response carries no image data. On success the emulator has
// written the PNG to the requested path and the client reads it from disk.
//
// # Basic Usage
//
// One connection per operation, released on every exit path:
//
//	err := mgbaprotocol.WithClient(ctx, func(c *mgbaprotocol.Client) error {
//	    return c.PressKey(ctx, mgbaprotocol.KeyA)
//	})
//
// Most callers want the Controller, which sequences a timed press and picks
// a connection policy:
//
//	ctrl := mgbaprotocol.NewController(mgbaprotocol.PerOperation)
//	defer ctrl.Close()
//
//	if err := ctrl.Press(ctx, mgbaprotocol.KeyStart, 100*time.Millisecond); err != nil {
//	    log.Fatal(err)
//	}
//	path, png, err := ctrl.CaptureToDir(ctx, "screenshots")
//
// # Errors
//
// Failures are typed so callers can branch with errors.Is and errors.As:
// *ConnectionError when dialling fails, ErrNotConnected and
// ErrInvalidArgument for misuse, *TransportError when the socket fails or
// closes mid-response, *RemoteError when the emulator reports a non-zero
// status and *ProtocolError for malformed frames.
//
// # Thread Safety
//
// Client and Controller are safe for concurrent use. A Client never has more
// than one request in flight; concurrent calls are serialized.
package mgbaprotocol
