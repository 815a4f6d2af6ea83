package mgbaprotocol

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectionPolicy decides how a Controller maps operations to connections.
type ConnectionPolicy int

const (
	// PerOperation opens a fresh connection for every key-down, key-up and
	// screenshot, and closes it when the operation ends.
	PerOperation ConnectionPolicy = iota
	// Session keeps one connection open across operations. A connection that
	// fails is discarded and the next operation dials again.
	Session
)

func (p ConnectionPolicy) String() string {
	switch p {
	case PerOperation:
		return "per-operation"
	case Session:
		return "session"
	default:
		return "unknown"
	}
}

// ParseConnectionPolicy converts "per-operation" or "session" into a policy.
func ParseConnectionPolicy(s string) (ConnectionPolicy, error) {
	switch s {
	case "per-operation", "":
		return PerOperation, nil
	case "session":
		return Session, nil
	default:
		return 0, newInvalidArgumentError("unknown connection policy %q", s)
	}
}

// releaseTimeout bounds the key-up sent after a press was interrupted.
const releaseTimeout = 2 * time.Second

// Controller drives the emulator's buttons and screen on top of Client,
// adding timed presses and a configurable connection policy.
type Controller struct {
	policy ConnectionPolicy
	opts   []Option
	log    *slog.Logger

	mu      sync.Mutex
	session *Client

	// pressMu keeps the down/wait/up of one press from interleaving with
	// another press on the same controller.
	pressMu sync.Mutex
}

// NewController creates a controller. The options are applied to every
// Client it creates.
func NewController(policy ConnectionPolicy, opts ...Option) *Controller {
	return &Controller{
		policy: policy,
		opts:   opts,
		log:    applyOptions(opts).logger,
	}
}

// Policy returns the controller's connection policy.
func (c *Controller) Policy() ConnectionPolicy {
	return c.policy
}

// KeyDown presses and holds a key.
func (c *Controller) KeyDown(ctx context.Context, key KeyCode) error {
	return c.do(ctx, func(cl *Client) error {
		return cl.PressKey(ctx, key)
	})
}

// KeyUp releases a key.
func (c *Controller) KeyUp(ctx context.Context, key KeyCode) error {
	return c.do(ctx, func(cl *Client) error {
		return cl.ReleaseKey(ctx, key)
	})
}

// Press holds key for the given duration and releases it. If ctx is
// cancelled during the hold the key is still released before the
// cancellation is returned.
func (c *Controller) Press(ctx context.Context, key KeyCode, hold time.Duration) error {
	c.pressMu.Lock()
	defer c.pressMu.Unlock()

	if err := c.KeyDown(ctx, key); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}

	if err := sleepContext(ctx, hold); err != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := c.KeyUp(releaseCtx, key); rerr != nil {
			c.log.Warn("failed to release key after interrupted press", "key", key.String(), "error", rerr)
		}
		return err
	}

	if err := c.KeyUp(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// PressSequence presses each key in turn, waiting gap between presses.
func (c *Controller) PressSequence(ctx context.Context, keys []KeyCode, hold, gap time.Duration) error {
	for i, key := range keys {
		if i > 0 {
			if err := sleepContext(ctx, gap); err != nil {
				return err
			}
		}
		if err := c.Press(ctx, key, hold); err != nil {
			return err
		}
	}
	return nil
}

// Screenshot captures the screen to path and returns the image bytes.
func (c *Controller) Screenshot(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, func(cl *Client) error {
		var err error
		data, err = cl.CaptureScreen(ctx, path)
		return err
	})
	return data, err
}

// CaptureToDir captures the screen to a new, uniquely named PNG in dir and
// returns the absolute path along with the image bytes.
func (c *Controller) CaptureToDir(ctx context.Context, dir string) (string, []byte, error) {
	if dir == "" {
		return "", nil, newInvalidArgumentError("screenshot directory is required")
	}
	path, err := filepath.Abs(filepath.Join(dir, "capture_"+ulid.Make().String()+".png"))
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve screenshot path: %w", err)
	}
	data, err := c.Screenshot(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return path, data, nil
}

// Close releases the session connection, if any. It is safe to call more
// than once. A Session controller used after Close dials again.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Disconnect()
		c.session = nil
	}
	return nil
}

// do runs fn against a client chosen by the connection policy.
func (c *Controller) do(ctx context.Context, fn func(*Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.policy == PerOperation {
		return WithClient(ctx, fn, c.opts...)
	}

	if c.session == nil || !c.session.IsConnected() {
		cl := NewClient(c.opts...)
		if err := cl.Connect(ctx); err != nil {
			return err
		}
		c.session = cl
	}

	err := fn(c.session)
	if err != nil && !c.session.IsConnected() {
		c.session = nil
	}
	return err
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
