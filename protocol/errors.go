package protocol

import "github.com/icristescu/irmin-server/common/errors"

const moduleName = "protocol"

var (
	// ErrPeerClosed is reported when the peer closes the transport
	// between frames (§7 transport-closed).
	ErrPeerClosed = errors.New(moduleName, 1, "protocol: peer closed connection")
	// ErrHandshakeMismatch is reported when the handshake version or
	// codec family tokens disagree (§4.3, §7 handshake-mismatch).
	ErrHandshakeMismatch = errors.New(moduleName, 2, "protocol: handshake mismatch")
	// ErrUnknownCommand is sent back to the client when a request names
	// a command absent from the registry (§4.5 step 2).
	ErrUnknownCommand = errors.New(moduleName, 3, "unknown command")
	// ErrInvalidArguments is sent back when a request body fails to
	// decode against its command's request codec (§4.5 step 3).
	ErrInvalidArguments = errors.New(moduleName, 4, "Invalid arguments")
)
