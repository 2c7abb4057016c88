package validator

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattica/lattica/chain"
	"github.com/lattica/lattica/libs/log"
	"github.com/lattica/lattica/storage"
)

// startPeer serves the peer side of the wire protocol: every byte received
// is passed through fn and written straight back. Returns the listen
// address and a closer.
func startPeer(t *testing.T, fn func(byte) byte) (string, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if err != nil {
						return
					}
					for i := 0; i < n; i++ {
						buf[i] = fn(buf[i])
					}
					if _, err := conn.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func newTestRow(t *testing.T, size int64) *storage.SharedRow {
	t.Helper()

	store, err := storage.OpenMappedFile(filepath.Join(t.TempDir(), "row.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Grow(size))

	return storage.NewSharedRow(store)
}

func dialPeer(t *testing.T, uid uint16, addr string) PeerConn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return PeerConn{
		Neuron: chain.Neuron{UID: uid, Hotkey: "hk", Address: addr},
		Conn:   conn,
	}
}

func TestExchangeRoundTrip(t *testing.T) {
	addr, closePeer := startPeer(t, func(b byte) byte { return b + 1 })
	defer closePeer()

	row := newTestRow(t, 4096)
	for i := int64(0); i < 100; i++ {
		require.NoError(t, row.Store().SetAt(i, byte(i)))
	}

	conns := []PeerConn{dialPeer(t, 0, addr), dialPeer(t, 1, addr)}
	assignments := splitEven(100, 2)

	// a 16-byte sub-buffer forces several sub-rounds plus a short tail
	ex := NewExchanger(log.TestingLogger(t), NopMetrics(), 2, 16, time.Second)
	faults := ex.Run(row, conns, assignments)
	require.Empty(t, faults)

	for i := int64(0); i < 100; i++ {
		require.EqualValues(t, byte(i)+1, row.Store().At(i), "offset %d", i)
	}
	assert.EqualValues(t, 0, row.Store().At(100), "bytes past the row span untouched")
}

// One peer's socket closes after zero bytes. Its whole range must stay
// untouched, the other peer's chunk must complete, and the round must not
// abort.
func TestExchangePeerFaultIsolated(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	deadLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer deadLn.Close()
	go func() {
		for {
			conn, err := deadLn.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr, closePeer := startPeer(t, func(b byte) byte { return b ^ 0xFF })
	defer closePeer()

	row := newTestRow(t, 4096)
	for i := int64(0); i < 64; i++ {
		require.NoError(t, row.Store().SetAt(i, byte(i)))
	}

	deadConn, err := net.Dial("tcp", deadLn.Addr().String())
	require.NoError(t, err)
	defer deadConn.Close()

	goodConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer goodConn.Close()

	conns := []PeerConn{
		{Neuron: chain.Neuron{UID: 7, Address: deadLn.Addr().String()}, Conn: deadConn},
		{Neuron: chain.Neuron{UID: 8, Address: addr}, Conn: goodConn},
	}
	assignments := splitEven(64, 2)

	ex := NewExchanger(log.TestingLogger(t), NopMetrics(), 2, 0, time.Second)
	faults := ex.Run(row, conns, assignments)

	require.Len(t, faults, 1)
	assert.EqualValues(t, 7, faults[0].UID)

	for i := int64(0); i < 32; i++ {
		require.EqualValues(t, byte(i), row.Store().At(i), "faulted peer's range must be untouched")
	}
	for i := int64(32); i < 64; i++ {
		require.EqualValues(t, byte(i)^0xFF, row.Store().At(i), "healthy peer's chunk must complete")
	}
}

// A peer that accepts the write but never answers must fault on its
// deadline instead of stalling the join barrier.
func TestExchangeStalledPeerFaults(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn) // swallow writes, never respond
	}()

	row := newTestRow(t, 4096)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	conns := []PeerConn{{Neuron: chain.Neuron{UID: 3, Address: ln.Addr().String()}, Conn: conn}}

	start := time.Now()
	ex := NewExchanger(log.TestingLogger(t), NopMetrics(), 1, 0, 200*time.Millisecond)
	faults := ex.Run(row, conns, splitEven(32, 1))

	require.Len(t, faults, 1)
	assert.EqualValues(t, 3, faults[0].UID)
	assert.Less(t, time.Since(start), 3*time.Second, "deadline must unblock the worker")
}

func TestExchangeZeroLengthChunk(t *testing.T) {
	row := newTestRow(t, 4096)

	// no reader on the other end: a zero-length chunk must not touch the
	// socket at all
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conns := []PeerConn{{Neuron: chain.Neuron{UID: 1}, Conn: client}}
	assignments := []Assignment{{Index: 0, Start: 0, End: 0}}

	ex := NewExchanger(log.TestingLogger(t), NopMetrics(), 1, 0, 100*time.Millisecond)
	faults := ex.Run(row, conns, assignments)
	require.Empty(t, faults)
}

func TestExchangeMismatchedInputsPanics(t *testing.T) {
	row := newTestRow(t, 4096)
	ex := NewExchanger(log.TestingLogger(t), NopMetrics(), 1, 0, time.Second)

	assert.Panics(t, func() {
		ex.Run(row, nil, []Assignment{{Index: 0, Start: 0, End: 1}})
	})
}
