package mgbaprotocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// ConnState is the lifecycle state of a Client's connection.
type ConnState int

const (
	// StateUnconnected is a new client, or one whose Connect failed.
	StateUnconnected ConnState = iota
	// StateConnected holds an open socket.
	StateConnected
	// StateClosed follows Disconnect or a transport failure. It is final.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is a TCP client for the mGBA control script.
//
// A Client owns at most one connection. Each operation writes one request
// and waits for its full response before returning; concurrent calls are
// serialized so a second request is never written before the previous
// response has been decoded.
//
// Clients are single-use: once disconnected, or once the connection fails,
// create a new one.
type Client struct {
	mu    sync.Mutex
	conn  net.Conn
	state ConnState

	// exchangeMu is held for the duration of a request/response exchange.
	exchangeMu sync.Mutex

	opts options
	log  *slog.Logger
}

// NewClient creates a client for the control script. It does not connect.
func NewClient(opts ...Option) *Client {
	o := applyOptions(opts)
	return &Client{
		opts: o,
		log:  o.logger.With("addr", o.address()),
	}
}

// Addr returns the address the client dials.
func (c *Client) Addr() string {
	return c.opts.address()
}

// State returns the connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected returns true if the client holds an open connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect opens the connection to the control script. On failure it returns
// a *ConnectionError and the client stays unconnected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.mu.Unlock()

	dialCtx := ctx
	if c.opts.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.opts.dialTimeout)
		defer cancel()
	}

	addr := c.opts.address()
	c.log.Debug("connecting")
	conn, err := c.opts.dial(dialCtx, "tcp", addr)
	if err != nil {
		c.log.Debug("connect failed", "error", err)
		return &ConnectionError{Address: addr, Cause: err}
	}

	c.mu.Lock()
	if c.state != StateUnconnected {
		// Lost a race with another Connect or with Disconnect.
		state := c.state
		c.mu.Unlock()
		conn.Close()
		if state == StateConnected {
			return ErrAlreadyConnected
		}
		return ErrClientClosed
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.log.Debug("connected")
	return nil
}

// Disconnect closes the connection if one is open. It is safe to call more
// than once and on a client that never connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	conn.Close()
	c.log.Debug("disconnected")
}

// PressKey presses key and keeps it held until ReleaseKey.
func (c *Client) PressKey(ctx context.Context, key KeyCode) error {
	resp, err := c.exchange(ctx, NewKeyDownRequest(key))
	if err != nil {
		return err
	}
	return resp.Err()
}

// ReleaseKey releases a held key.
func (c *Client) ReleaseKey(ctx context.Context, key KeyCode) error {
	resp, err := c.exchange(ctx, NewKeyUpRequest(key))
	if err != nil {
		return err
	}
	return resp.Err()
}

// CaptureScreen asks the emulator to write the current frame to path and
// returns the file's contents.
//
// The parent directory of path is created first. The image never crosses
// the socket: the emulator writes the file itself and the client reads it
// only after a success status has been decoded. A relative path is resolved
// by the emulator process, so pass an absolute path unless both processes
// share a working directory.
func (c *Client) CaptureScreen(ctx context.Context, path string) ([]byte, error) {
	req := NewScreenshotRequest(path)
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	return data, nil
}

// exchange writes req and decodes one response. Transport failures and
// framing violations close the connection; a decoded error status does not.
func (c *Client) exchange(ctx context.Context, req Request) (Response, error) {
	if err := req.validate(); err != nil {
		return Response{}, err
	}

	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return Response{}, ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return Response{}, &TransportError{Op: "write", Cause: err}
	}

	log := c.log.With("op_id", ulid.Make().String(), "request", req.String())

	var deadline time.Time
	if c.opts.timeout > 0 {
		deadline = time.Now().Add(c.opts.timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		c.drop(conn)
		return Response{}, &TransportError{Op: "write", Cause: err}
	}

	start := time.Now()
	resp, err := c.roundTrip(ctx, conn, req)
	if err != nil {
		log.Debug("exchange failed", "error", err)
		c.drop(conn)
		return Response{}, err
	}

	log.Debug("response received", "status", resp.Status, "elapsed", time.Since(start))
	return resp, nil
}

// roundTrip performs the write and the response wait on a goroutine so that
// cancelling ctx can interrupt them by expiring the socket deadline.
func (c *Client) roundTrip(ctx context.Context, conn net.Conn, req Request) (Response, error) {
	var resp Response
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)

		if _, err := conn.Write(req.Encode()); err != nil {
			return &TransportError{Op: "write", Cause: err}
		}

		r, err := ReadResponse(conn, c.opts.readBufferSize)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				return err
			}
			return &TransportError{Op: "read", Cause: err}
		}
		resp = r
		return nil
	})
	g.Go(func() error {
		select {
		case <-done:
		case <-gctx.Done():
			_ = conn.SetDeadline(time.Unix(1, 0))
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		return resp, nil
	}

	// Report the cancellation rather than the deadline used to deliver it.
	var terr *TransportError
	if ctxErr := ctx.Err(); ctxErr != nil && errors.As(err, &terr) {
		return Response{}, &TransportError{Op: terr.Op, Cause: ctxErr}
	}
	return Response{}, err
}

// drop closes conn and marks the client closed if conn is still current.
func (c *Client) drop(conn net.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.state = StateClosed
	}
	c.mu.Unlock()
	conn.Close()
}

// WithClient connects a new client, passes it to fn and disconnects it when
// fn returns, whether fn succeeded, failed or panicked.
//
//	err := mgbaprotocol.WithClient(ctx, func(c *mgbaprotocol.Client) error {
//	    return c.PressKey(ctx, mgbaprotocol.KeyA)
//	}, mgbaprotocol.WithAddress("localhost", 8888))
func WithClient(ctx context.Context, fn func(*Client) error, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client := NewClient(opts...)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	return fn(client)
}
