package mgbaprotocol

import (
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockEmulator is a stand-in for the mGBA control script. It listens on a
// loopback TCP port, decodes requests and lets each test decide how to
// answer them.
type mockEmulator struct {
	listener net.Listener

	// handler is called for each decoded request and writes whatever reply
	// the test wants, or nothing at all. It may close the connection.
	handler func(conn net.Conn, req Request)

	// requests receives every decoded request in arrival order.
	requests chan Request

	mu       sync.Mutex
	conns    []net.Conn
	accepted int

	wg sync.WaitGroup
}

// startMockEmulator starts a mock control script that is stopped when the
// test finishes. A nil handler answers every request with success and, for
// screenshots, writes a small fake PNG to the requested path.
func startMockEmulator(t *testing.T, handler func(conn net.Conn, req Request)) *mockEmulator {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to listen")

	if handler == nil {
		handler = defaultMockHandler
	}

	me := &mockEmulator{
		listener: listener,
		handler:  handler,
		requests: make(chan Request, 64),
	}

	me.wg.Add(1)
	go me.acceptLoop()

	t.Cleanup(me.stop)
	return me
}

// options returns client options pointing at the mock.
func (me *mockEmulator) options(extra ...Option) []Option {
	addr := me.listener.Addr().(*net.TCPAddr)
	return append([]Option{WithAddress("127.0.0.1", addr.Port)}, extra...)
}

// port returns the listening port.
func (me *mockEmulator) port() int {
	return me.listener.Addr().(*net.TCPAddr).Port
}

// connectionCount returns how many connections were accepted so far.
func (me *mockEmulator) connectionCount() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.accepted
}

// nextRequest waits for the next decoded request.
func (me *mockEmulator) nextRequest(t *testing.T) Request {
	t.Helper()
	select {
	case req := <-me.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a request")
		return Request{}
	}
}

// requireNoRequest asserts that no request has been received.
func (me *mockEmulator) requireNoRequest(t *testing.T) {
	t.Helper()
	select {
	case req := <-me.requests:
		t.Fatalf("unexpected request: %s", req)
	case <-time.After(50 * time.Millisecond):
	}
}

func (me *mockEmulator) acceptLoop() {
	defer me.wg.Done()

	for {
		conn, err := me.listener.Accept()
		if err != nil {
			return
		}

		me.mu.Lock()
		me.conns = append(me.conns, conn)
		me.accepted++
		me.mu.Unlock()

		me.wg.Add(1)
		go me.handleConnection(conn)
	}
}

func (me *mockEmulator) handleConnection(conn net.Conn) {
	defer me.wg.Done()

	for {
		req, err := ReadRequest(conn)
		if err != nil {
			return
		}
		me.requests <- req
		me.handler(conn, req)
	}
}

func (me *mockEmulator) stop() {
	me.listener.Close()

	me.mu.Lock()
	for _, conn := range me.conns {
		conn.Close()
	}
	me.conns = nil
	me.mu.Unlock()

	me.wg.Wait()
}

// fakePNG is the content the default handler writes for screenshots.
var fakePNG = []byte("\x89PNG\r\n\x1a\nfake-frame")

func defaultMockHandler(conn net.Conn, req Request) {
	if req.Op == OpScreenshot {
		if err := os.WriteFile(req.Path, fakePNG, 0o644); err != nil {
			conn.Write(NewErrorResponse(1, err.Error()).Encode())
			return
		}
	}
	conn.Write(NewOKResponse().Encode())
}

// replyWith returns a handler that writes raw bytes one at a time.
func replyWith(data []byte) func(conn net.Conn, req Request) {
	return func(conn net.Conn, req Request) {
		for i := range data {
			conn.Write(data[i : i+1])
		}
	}
}

// replyAndClose returns a handler that writes raw bytes and hangs up.
func replyAndClose(data []byte) func(conn net.Conn, req Request) {
	return func(conn net.Conn, req Request) {
		conn.Write(data)
		conn.Close()
	}
}

// noReply is a handler that never answers.
func noReply(net.Conn, Request) {}
