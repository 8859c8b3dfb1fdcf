// Package integration drives a real server over a unix-domain socket
// with the client runtime, exercising the end-to-end scenarios of §8.
// It lives outside package server since server must not import client.
package integration_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/icristescu/irmin-server/client"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/server"
	"github.com/icristescu/irmin-server/store"
	"github.com/icristescu/irmin-server/wire"
)

// startServer starts a server listening on a fresh unix socket in a
// temp directory and returns its socket path and a stop function. Only
// one server.New is created for the whole package: it registers
// process metrics on prometheus.DefaultRegisterer, which panics on a
// second registration within the same test binary.
func startServer(t *testing.T) (sockPath string, stop func()) {
	t.Helper()

	dir := t.TempDir()
	sockPath = filepath.Join(dir, "irmin.sock")
	uri := "unix://" + sockPath

	repo := store.NewMemoryRepo("main")
	srv := server.New(server.Config{URI: uri}, repo)

	go func() { _ = srv.ListenAndServe() }()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("unix", sockPath, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond, "server never started listening")

	return sockPath, func() { _ = srv.Close() }
}

// TestScenarios exercises S1 through S6 of §8 sequentially against one
// running server, using independent client connections (sessions) per
// scenario so each starts from a clean current-branch/handle-table
// state.
func TestScenarios(t *testing.T) {
	sockPath, stop := startServer(t)
	defer stop()
	uri := "unix://" + sockPath

	dial := func(t *testing.T) *client.Client {
		t.Helper()
		c, err := client.Dial(client.Config{URI: uri})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	info := model.Info{Author: "tester", Message: "m", Timestamp: 1}

	// S1: Connectivity — Ping succeeds over a freshly dialed session.
	t.Run("S1_ping", func(t *testing.T) {
		require := require.New(t)
		c := dial(t)
		require.NoError(c.Ping())
	})

	// S2: Set/Find/Mem round-trip content on the default branch.
	t.Run("S2_set_find_mem", func(t *testing.T) {
		require := require.New(t)
		c := dial(t)

		require.NoError(c.Set(model.PathOf("a", "b"), info, model.Contents("hello")))

		v, ok, err := c.Find(model.PathOf("a", "b"))
		require.NoError(err)
		require.True(ok)
		require.Equal(model.Contents("hello"), v)

		memOK, err := c.Mem(model.PathOf("a", "b"))
		require.NoError(err)
		require.True(memOK)

		memTreeOK, err := c.MemTree(model.PathOf("a"))
		require.NoError(err)
		require.True(memTreeOK)
	})

	// S3: Empty/Add/List/Cleanup/Mem drives the tree-handle surface end
	// to end, including releasing the handles.
	t.Run("S3_tree_handles", func(t *testing.T) {
		require := require.New(t)
		c := dial(t)

		h0, err := c.Empty()
		require.NoError(err)

		h1, err := h0.Add(model.PathOf("x"), model.Contents("X"))
		require.NoError(err)
		h2, err := h1.Add(model.PathOf("y"), model.Contents("Y"))
		require.NoError(err)

		entries, err := h2.List(model.Path{})
		require.NoError(err)
		require.Len(entries, 2)

		memOK, err := h2.Mem(model.PathOf("x"))
		require.NoError(err)
		require.True(memOK)

		require.NoError(h0.Cleanup())
		require.NoError(h1.Cleanup())
		require.NoError(h2.Cleanup())
	})

	// S4: Test_and_set fails cleanly (ok=false, no error) when the
	// expected prior value is stale, and the stored value is unchanged.
	t.Run("S4_cas_failure", func(t *testing.T) {
		require := require.New(t)
		c := dial(t)

		require.NoError(c.Set(model.PathOf("cas"), info, model.Contents("v1")))

		stale := model.Contents("not-v1")
		newVal := model.Contents("v2")
		ok, err := c.TestAndSet(model.PathOf("cas"), info, &stale, &newVal)
		require.NoError(err)
		require.False(ok, "CAS against a stale value must fail without error")

		v, found, err := c.Find(model.PathOf("cas"))
		require.NoError(err)
		require.True(found)
		require.Equal(model.Contents("v1"), v, "value must be unchanged after a failed CAS")

		cur := model.Contents("v1")
		ok, err = c.TestAndSet(model.PathOf("cas"), info, &cur, &newVal)
		require.NoError(err)
		require.True(ok)
	})

	// S5: reconnect-after-kill — closing the transport out from under a
	// client and then issuing a request triggers the documented one-shot
	// transparent reconnect (§4.8), and the retried request succeeds.
	t.Run("S5_reconnect_after_disconnect", func(t *testing.T) {
		require := require.New(t)
		c := dial(t)
		require.NoError(c.Ping())

		require.NoError(client.CloseTransportForTest(c))

		require.NoError(c.Ping(), "request after the transport drops must transparently reconnect and succeed")
	})

	// S6: an unknown command surfaces as a RemoteError, not a transport
	// failure, and does not take down the session.
	t.Run("S6_unknown_command", func(t *testing.T) {
		require := require.New(t)

		raw, err := net.Dial("unix", sockPath)
		require.NoError(err)
		defer raw.Close()

		conn, err := protocol.InitiateHandshake(raw, wire.FamilyCompact)
		require.NoError(err)

		require.NoError(conn.WriteRequestHeader(protocol.RequestHeader{Command: "this.command.does.not.exist"}))
		require.NoError(conn.WriteValue(&protocol.Unit{}))
		require.NoError(conn.Flush())

		header, err := conn.ReadResponseHeader()
		require.NoError(err)
		require.Equal(protocol.StatusError, header.Status)

		msg, err := conn.ReadErrorMessage()
		require.NoError(err)
		require.NotEmpty(msg)

		// the same transport must still serve a well-formed request
		// afterward — an unknown command is a recoverable error, not a
		// session-ending one.
		require.NoError(conn.WriteRequestHeader(protocol.RequestHeader{Command: protocol.CmdPing}))
		require.NoError(conn.WriteValue(&protocol.Unit{}))
		require.NoError(conn.Flush())

		header, err = conn.ReadResponseHeader()
		require.NoError(err)
		require.Equal(protocol.StatusOK, header.Status)
	})
}
