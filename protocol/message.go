package protocol

// Status is the single byte that opens every response frame (§6).
type Status uint8

const (
	// StatusOK marks a successful response; the response body follows
	// using the command's response codec.
	StatusOK Status = 0
	// StatusError marks a failed response; a length-prefixed UTF-8
	// message follows instead of a body.
	StatusError Status = 1
	// StatusWatch marks an asynchronous watch notification (§6, §9 open
	// question #2: this spec reserves status byte 2 for it). At most one
	// such frame is ever in flight ahead of a request's own response.
	StatusWatch Status = 2
)

// VersionMagic is the protocol version token exchanged during the
// handshake (§4.3, §6). Bumping it is the only sanctioned way to break
// wire compatibility; there is no in-band schema evolution.
const VersionMagic uint32 = 1
