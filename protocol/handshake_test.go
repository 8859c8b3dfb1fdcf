package protocol_test

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

// TestHandshakeSuccess exercises §4.3: both sides agree on version and
// codec family.
func TestHandshakeSuccess(t *testing.T) {
	require := require.New(t)
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	type result struct {
		conn *protocol.Conn
		err  error
	}
	serverCh := make(chan result, 1)
	go func() {
		conn, err := protocol.AcceptHandshake(s)
		serverCh <- result{conn, err}
	}()

	clientConn, err := protocol.InitiateHandshake(c, wire.FamilySelfDescribing)
	require.NoError(err, "InitiateHandshake")
	require.NotNil(clientConn)

	r := <-serverCh
	require.NoError(r.err, "AcceptHandshake")
	require.NotNil(r.conn)
}

// TestHandshakeMismatch exercises §4.3/§7 handshake-mismatch: the
// acceptor closes without further I/O and the initiator reports a
// connection error.
func TestHandshakeMismatch(t *testing.T) {
	require := require.New(t)
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	serverErrCh := make(chan error, 1)
	go func() {
		_, err := protocol.AcceptHandshake(s)
		serverErrCh <- err
	}()

	bad := []byte{0xFF, 0xFF, 0xFF, 0xFF, byte(wire.FamilyCompact)}
	writeDone := make(chan error, 1)
	go func() {
		_, err := c.Write(bad)
		writeDone <- err
	}()
	require.NoError(<-writeDone)

	// The acceptor must not answer a mismatched token: the next read
	// sees the closed pipe rather than a handshake frame.
	ack := make([]byte, 5)
	_, err := io.ReadFull(c, ack)
	require.ErrorIs(err, io.EOF)

	require.ErrorIs(<-serverErrCh, protocol.ErrHandshakeMismatch)
}
