package main

import (
	"context"
	"fmt"
	"net"
	"time"
)

const (
	// emulatorWaitTimeout is how long `mgba wait` polls by default.
	emulatorWaitTimeout = 30 * time.Second

	// emulatorPollInterval is how often to try connecting while waiting.
	emulatorPollInterval = 250 * time.Millisecond
)

// waitForEmulator polls addr until it accepts a TCP connection, the timeout
// elapses or ctx is cancelled. The probe connection is closed immediately
// without sending a request.
func waitForEmulator(ctx context.Context, addr string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	var lastErr error
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for emulator at %s: %w", addr, lastErr)
		case <-time.After(interval):
		}
	}
}
