package mgbaprotocol

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"
)

// DialFunc opens the stream connection to the emulator.
// It has the signature of (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Option configures a Client or Controller.
type Option func(*options)

type options struct {
	host           string
	port           int
	dialTimeout    time.Duration
	timeout        time.Duration
	readBufferSize int
	logger         *slog.Logger
	dial           DialFunc
}

func applyOptions(opts []Option) options {
	o := options{
		host:           DefaultHost,
		port:           DefaultPort,
		dialTimeout:    DefaultDialTimeout,
		readBufferSize: DefaultReadBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	if o.dial == nil {
		var d net.Dialer
		o.dial = d.DialContext
	}
	return o
}

func (o options) address() string {
	return Address(o.host, o.port)
}

// WithAddress sets the host and port of the control script.
func WithAddress(host string, port int) Option {
	return func(o *options) {
		o.host = host
		o.port = port
	}
}

// WithDialTimeout bounds how long Connect may take. Zero disables the bound.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithTimeout bounds each request/response exchange. The default of zero
// means an exchange waits for the emulator indefinitely; use the context or
// this option to avoid hanging on an unresponsive script.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithReadBufferSize sets the size of each socket read.
func WithReadBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readBufferSize = n
		}
	}
}

// WithLogger sets the logger that receives connection and request events.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDialer replaces the function used to open connections.
func WithDialer(dial DialFunc) Option {
	return func(o *options) {
		o.dial = dial
	}
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
