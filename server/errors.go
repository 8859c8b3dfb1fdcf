package server

import "github.com/icristescu/irmin-server/common/errors"

const moduleName = "handle"

// ErrUnknownHandle is the handler-recoverable error (§7) raised when a
// command references a tree handle absent from the session's table
// (§4.6: "if the identifier is absent from the table, the handler
// fails with a recoverable error").
var ErrUnknownHandle = errors.New(moduleName, 1, "handle: unknown tree handle")
