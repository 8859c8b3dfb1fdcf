package server

import (
	"errors"
	"net"
	"time"

	"github.com/opentracing/opentracing-go"

	cerrors "github.com/icristescu/irmin-server/common/errors"
	"github.com/icristescu/irmin-server/common/logging"
	"github.com/icristescu/irmin-server/common/tracing"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
)

// recoverableSleep is the back-pressure delay after a handler-
// recoverable error (§4.5 step 4).
const recoverableSleep = 10 * time.Millisecond

// serve runs the full lifetime of one accepted connection (§4.5):
// handshake, session init, dispatch loop, then session teardown. It
// never returns an error; all failures are logged and simply end the
// loop, since by the time serve is called there is no caller left to
// propagate to.
func serve(raw net.Conn, repo *store.Repo, logger *logging.Logger, metrics *serverMetrics) {
	defer raw.Close()

	conn, err := protocol.AcceptHandshake(raw)
	if err != nil {
		logger.Warn("handshake failed", "err", err, "remote", raw.RemoteAddr())
		return
	}

	sess := newSession(conn, repo, logger, metrics)
	defer sess.close()

	metrics.sessionOpened()
	defer metrics.sessionClosed()

	logger.Debug("session established", "session", sess.id)
	for {
		if !dispatchOne(sess, metrics) {
			break
		}
	}
	logger.Debug("session ended", "session", sess.id)
}

// dispatchOne runs one iteration of the loop in §4.5, returning false
// when the loop should terminate (peer closed, or an unrecoverable
// handler error).
func dispatchOne(sess *Session, metrics *serverMetrics) bool {
	header, err := sess.conn.ReadRequestHeader()
	if err != nil {
		if errors.Is(err, protocol.ErrPeerClosed) {
			return false
		}
		sess.logger.Warn("failed to read request header", "err", err, "session", sess.id)
		return false
	}

	descriptor, ok := protocol.OfName(header.Command)
	if !ok {
		if err := sess.conn.ReplyError(protocol.ErrUnknownCommand.Error()); err != nil {
			sess.logger.Warn("failed to send error reply", "err", err, "session", sess.id)
			return false
		}
		return finishTurn(sess)
	}

	req := descriptor.NewRequest()
	if err := sess.conn.ReadValue(req); err != nil {
		if errors.Is(err, protocol.ErrPeerClosed) {
			return false
		}
		if err := sess.conn.ReplyError(protocol.ErrInvalidArguments.Error()); err != nil {
			sess.logger.Warn("failed to send error reply", "err", err, "session", sess.id)
			return false
		}
		return finishTurn(sess)
	}

	var span opentracing.Span
	if len(header.SpanContext) != 0 {
		if sc, scErr := tracing.SpanContextFromBinary(header.SpanContext); scErr == nil && sc != nil {
			span = opentracing.StartSpan(header.Command, opentracing.ChildOf(sc))
			defer span.Finish()
		}
	}

	metrics.command(header.Command)

	resp, handleErr := descriptor.Handle(sess, req)
	if handleErr != nil {
		if isFatal(handleErr) {
			sess.logger.Error("unrecoverable handler error", "err", handleErr, "command", header.Command, "session", sess.id)
			return false
		}
		if err := sess.conn.ReplyError(handleErr.Error()); err != nil {
			sess.logger.Warn("failed to send error reply", "err", err, "session", sess.id)
			return false
		}
		time.Sleep(recoverableSleep)
		return finishTurn(sess)
	}

	if err := sess.conn.ReplyOK(resp); err != nil {
		sess.logger.Warn("failed to write response", "err", err, "session", sess.id)
		return false
	}
	return finishTurn(sess)
}

// finishTurn flushes the response, pushes any buffered watch
// notifications, and reports whether the loop should continue.
func finishTurn(sess *Session) bool {
	if err := sess.conn.Flush(); err != nil {
		sess.logger.Warn("failed to flush response", "err", err, "session", sess.id)
		return false
	}
	if err := sess.drainWatches(); err != nil {
		sess.logger.Warn("failed to flush watch notification", "err", err, "session", sess.id)
		return false
	}
	return true
}

// isFatal distinguishes a handler-recoverable error (§7, carries a
// common/errors module+code pair) from an unexpected exception, which
// is treated as handler-fatal and closes the session.
func isFatal(err error) bool {
	module, _ := cerrors.Code(err)
	return module == ""
}
