package protocol_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

func pipe(t *testing.T) (client, server *protocol.Conn) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() {
		_ = c.Close()
		_ = s.Close()
	})
	return protocol.NewConn(c, wire.FamilyCompact), protocol.NewConn(s, wire.FamilyCompact)
}

// TestRequestHeaderRoundTrip exercises §8 invariant 1 for the request
// header frame of §4.2/§6.
func TestRequestHeaderRoundTrip(t *testing.T) {
	require := require.New(t)
	client, server := pipe(t)

	headerCh := make(chan protocol.RequestHeader, 1)
	errCh := make(chan error, 1)
	go func() {
		h, err := server.ReadRequestHeader()
		errCh <- err
		headerCh <- h
	}()

	require.NoError(client.WriteRequestHeader(protocol.RequestHeader{Command: "store.set"}))
	require.NoError(client.Flush())

	require.NoError(<-errCh)
	require.Equal("store.set", (<-headerCh).Command)
}

type pathValue struct {
	Path []string
}

func TestReplyOKRoundTrip(t *testing.T) {
	require := require.New(t)
	client, server := pipe(t)

	type result struct {
		header protocol.ResponseHeader
		value  pathValue
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		h, err := client.ReadResponseHeader()
		if err != nil {
			resCh <- result{err: err}
			return
		}
		var v pathValue
		err = client.ReadValue(&v)
		resCh <- result{header: h, value: v, err: err}
	}()

	require.NoError(server.ReplyOK(pathValue{Path: []string{"a", "b"}}))
	require.NoError(server.Flush())

	r := <-resCh
	require.NoError(r.err)
	require.Equal(protocol.StatusOK, r.header.Status)
	require.Equal([]string{"a", "b"}, r.value.Path)
}

// TestReplyErrorRoundTrip exercises the unknown-command error path of
// §4.5 step 2 / §7.
func TestReplyErrorRoundTrip(t *testing.T) {
	require := require.New(t)
	client, server := pipe(t)

	type result struct {
		header  protocol.ResponseHeader
		message string
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		h, err := client.ReadResponseHeader()
		if err != nil {
			resCh <- result{err: err}
			return
		}
		msg, err := client.ReadErrorMessage()
		resCh <- result{header: h, message: msg, err: err}
	}()

	require.NoError(server.ReplyError("unknown command"))
	require.NoError(server.Flush())

	r := <-resCh
	require.NoError(r.err)
	require.Equal(protocol.StatusError, r.header.Status)
	require.Equal("unknown command", r.message)
}

// TestWatchNotification exercises the reserved status=2 async frame of
// §6.
func TestWatchNotification(t *testing.T) {
	require := require.New(t)
	client, server := pipe(t)

	resCh := make(chan protocol.ResponseHeader, 1)
	errCh := make(chan error, 1)
	go func() {
		h, err := client.ReadResponseHeader()
		errCh <- err
		resCh <- h
	}()

	require.NoError(server.WriteWatchNotification(protocol.WatchNotification{Branch: "main"}))

	require.NoError(<-errCh)
	require.Equal(protocol.StatusWatch, (<-resCh).Status)
}

// TestReadRequestHeaderPeerClosed exercises §7 transport-closed: a
// clean EOF between frames surfaces as ErrPeerClosed.
func TestReadRequestHeaderPeerClosed(t *testing.T) {
	c, s := net.Pipe()
	client := protocol.NewConn(c, wire.FamilyCompact)
	server := protocol.NewConn(s, wire.FamilyCompact)

	errCh := make(chan error, 1)
	go func() {
		_, err := server.ReadRequestHeader()
		errCh <- err
	}()

	require.NoError(t, client.Close())
	require.ErrorIs(t, <-errCh, protocol.ErrPeerClosed)
}
