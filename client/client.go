// Package client implements the client runtime of §4.8: connection
// establishment, transparent reconnect, request serialization and
// response decoding, and the client-side tree wrapper. A Client
// presents a single-threaded API per connection (§5); callers wanting
// parallelism open multiple Clients.
package client

import (
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	cerrors "github.com/icristescu/irmin-server/common/errors"
	"github.com/icristescu/irmin-server/common/logging"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/wire"
)

// Config is the client-side configuration table from §6: {uri, tls}.
type Config struct {
	URI string
	TLS bool

	// Family is the codec family this client proposes during the
	// handshake (§4.3); defaults to FamilyCompact (amino) if zero.
	Family wire.Family
}

// RemoteError is returned by a request when the server replied with an
// error-status frame (§7): "the client surfaces all error-status
// responses as a recoverable result carrying the server's message."
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// ErrTreeForeignClient is the programming-error result of §9 "never
// attempt to migrate a tree between sessions": using a Tree value
// against a Client other than the one that produced it.
var ErrTreeForeignClient = cerrors.New("client", 1, "client: tree belongs to a different session")

// ErrClientClosed is returned by any operation attempted after Close.
var ErrClientClosed = cerrors.New("client", 2, "client: connection closed")

// errUnknownStatus is returned when a response frame opens with a
// status byte other than 0, 1 or 2.
var errUnknownStatus = cerrors.New("client", 3, "client: unknown response status")

// Client holds the transport configuration and the single mutable
// current connection (§4.8: "{transport_config, current_connection
// (mut)}").
type Client struct {
	cfg    Config
	logger *logging.Logger

	mu     sync.Mutex
	conn   *protocol.Conn
	closed bool

	// watchHandler, if set, receives every asynchronous watch
	// notification frame observed while waiting for a response
	// (§4.7 Watch/Watch_key, §6 status=2).
	watchHandler func(protocol.WatchNotification)
}

// Dial establishes a connection and performs the initial handshake.
func Dial(cfg Config) (*Client, error) {
	c := &Client{cfg: cfg, logger: logging.GetLogger("client")}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// OnNotification registers the callback invoked for every asynchronous
// watch notification this client observes. It must be set before
// issuing the Watch/Watch_key command that starts producing them.
func (c *Client) OnNotification(fn func(protocol.WatchNotification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchHandler = fn
}

func (c *Client) connect() error {
	raw, err := dial(c.cfg)
	if err != nil {
		return err
	}
	conn, err := protocol.InitiateHandshake(raw, c.cfg.Family)
	if err != nil {
		_ = raw.Close()
		return err
	}
	c.conn = conn
	return nil
}

// reconnect re-establishes the transport and handshake exactly once,
// per §4.8 "transparent reconnect".
func (c *Client) reconnect() error {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	b := backoff.NewExponentialBackOff()
	time.Sleep(b.NextBackOff())
	return c.connect()
}

// CloseTransportForTest severs the underlying transport without
// marking c closed, simulating the peer vanishing out from under a
// live session (§4.8 "transparent reconnect", §8 S5). Exported for use
// by integration tests in other packages; production code has no
// legitimate reason to call it.
func CloseTransportForTest(c *Client) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Close closes the underlying connection. Further requests fail with
// ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// request performs command with req as its body and decodes the
// response into a freshly allocated *Resp (§4.8 steps 1-3). Any failure
// other than a *RemoteError, whether while writing the request or while
// reading its response, triggers exactly one reconnect and retry (§4.8
// "transparent reconnect", §8 invariant 7); if the reconnect itself
// fails, its error is returned without a further attempt.
func request[Resp any](c *Client, command string, req interface{}) (*Resp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	resp, err := c.doRequest(command, req, new(Resp))
	if err == nil {
		return resp.(*Resp), nil
	}
	if !isTransportFailure(err) {
		return nil, err
	}

	c.logger.Warn("transport failure, reconnecting", "err", err, "command", command)
	if rerr := c.reconnect(); rerr != nil {
		return nil, rerr
	}
	resp, err = c.doRequest(command, req, new(Resp))
	if err != nil {
		return nil, err
	}
	return resp.(*Resp), nil
}

// isTransportFailure distinguishes a transport-level failure (worth
// one reconnect-and-retry per §4.8) from a well-formed server reply
// the caller should simply see (§7 "Backend-domain results ... flow
// through the res codec as structured values, not as error frames").
// A *RemoteError is by definition a successfully round-tripped
// response and is never retried.
func isTransportFailure(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return false
	}
	return true
}

// doRequest writes one request and reads frames until it finds the
// matching response, dispatching any interleaved status=2 notification
// frames to the registered watch handler along the way (§5 "Watch
// notifications are interleaved on the session stream but never split
// a request/response pair").
func (c *Client) doRequest(command string, req interface{}, out interface{}) (interface{}, error) {
	if err := c.conn.WriteRequestHeader(protocol.RequestHeader{Command: command}); err != nil {
		return nil, err
	}
	if err := c.conn.WriteValue(req); err != nil {
		return nil, err
	}
	if err := c.conn.Flush(); err != nil {
		return nil, err
	}

	for {
		header, err := c.conn.ReadResponseHeader()
		if err != nil {
			return nil, err
		}

		switch header.Status {
		case protocol.StatusOK:
			if err := c.conn.ReadValue(out); err != nil {
				return nil, err
			}
			return out, nil
		case protocol.StatusError:
			msg, err := c.conn.ReadErrorMessage()
			if err != nil {
				return nil, err
			}
			return nil, &RemoteError{Message: msg}
		case protocol.StatusWatch:
			var note protocol.WatchNotification
			if err := c.conn.ReadValue(&note); err != nil {
				return nil, err
			}
			if c.watchHandler != nil {
				c.watchHandler(note)
			}
			continue
		default:
			return nil, errUnknownStatus
		}
	}
}
