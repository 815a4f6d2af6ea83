// =============================================================================
// mockemulator_test.go - Mock mGBA Control Script for Testing
// =============================================================================
//
// Test helper shared by the CLI tests. It listens on a loopback TCP port,
// decodes requests with the protocol package, records them, and answers with
// success (writing a fake PNG for screenshot requests) unless a test
// supplies its own handler.
//
// =============================================================================

package main

import (
	"net"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gbaagent/mgba/mgbaprotocol"
)

type mockEmulator struct {
	listener net.Listener
	handler  func(req mgbaprotocol.Request) mgbaprotocol.Response

	mu       sync.Mutex
	conns    []net.Conn
	received []mgbaprotocol.Request

	wg sync.WaitGroup
}

var fakePNG = []byte("\x89PNG\r\n\x1a\ncli-frame")

func startMockEmulator(t *testing.T, handler func(req mgbaprotocol.Request) mgbaprotocol.Response) *mockEmulator {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to create mock emulator listener")

	if handler == nil {
		handler = defaultMockHandler
	}

	me := &mockEmulator{listener: listener, handler: handler}
	me.wg.Add(1)
	go me.acceptLoop()

	t.Cleanup(me.stop)
	return me
}

// portFlag returns the --port argument for the mock.
func (me *mockEmulator) portFlag() string {
	return "--port=" + strconv.Itoa(me.listener.Addr().(*net.TCPAddr).Port)
}

// requests returns a copy of the requests received so far.
func (me *mockEmulator) requests() []mgbaprotocol.Request {
	me.mu.Lock()
	defer me.mu.Unlock()
	return append([]mgbaprotocol.Request(nil), me.received...)
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
		me.mu.Unlock()

		me.wg.Add(1)
		go me.handleConnection(conn)
	}
}

func (me *mockEmulator) handleConnection(conn net.Conn) {
	defer me.wg.Done()

	for {
		req, err := mgbaprotocol.ReadRequest(conn)
		if err != nil {
			return
		}

		me.mu.Lock()
		me.received = append(me.received, req)
		me.mu.Unlock()

		conn.Write(me.handler(req).Encode())
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

func defaultMockHandler(req mgbaprotocol.Request) mgbaprotocol.Response {
	if req.Op == mgbaprotocol.OpScreenshot {
		if err := os.WriteFile(req.Path, fakePNG, 0o644); err != nil {
			return mgbaprotocol.NewErrorResponse(1, err.Error())
		}
	}
	return mgbaprotocol.NewOKResponse()
}
