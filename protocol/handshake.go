package protocol

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/icristescu/irmin-server/wire"
)

// handshakeFrame is the single round-trip exchanged immediately after
// transport establishment (§4.3): a fixed version magic plus which
// codec family this connection will use for every subsequent value.
// No other traffic may precede it.
type handshakeFrame struct {
	Version uint32
	Family  wire.Family
}

func writeHandshake(w io.Writer, h handshakeFrame) error {
	var buf [5]byte
	binary.BigEndian.PutUint32(buf[:4], h.Version)
	buf[4] = byte(h.Family)
	_, err := w.Write(buf[:])
	return err
}

func readHandshake(r io.Reader) (handshakeFrame, error) {
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return handshakeFrame{}, ErrPeerClosed
		}
		return handshakeFrame{}, err
	}
	return handshakeFrame{
		Version: binary.BigEndian.Uint32(buf[:4]),
		Family:  wire.Family(buf[4]),
	}, nil
}

// AcceptHandshake performs the acceptor side of §4.3: read the
// initiator's token, close without further I/O on a version mismatch,
// and otherwise answer with our own token. The accepted family is
// whatever the initiator proposed; the acceptor always agrees to it,
// since any registered Family value is supported symmetrically by both
// peers.
func AcceptHandshake(raw net.Conn) (*Conn, error) {
	mine := handshakeFrame{Version: VersionMagic}

	peer, err := readHandshake(raw)
	if err != nil {
		return nil, err
	}
	if peer.Version != VersionMagic {
		_ = raw.Close()
		return nil, ErrHandshakeMismatch
	}
	mine.Family = peer.Family

	if err := writeHandshake(raw, mine); err != nil {
		return nil, err
	}
	return NewConn(raw, peer.Family), nil
}

// InitiateHandshake performs the initiator side of §4.3: write our
// token (proposing family), read the acceptor's ack, and verify both
// match.
func InitiateHandshake(raw net.Conn, family wire.Family) (*Conn, error) {
	mine := handshakeFrame{Version: VersionMagic, Family: family}
	if err := writeHandshake(raw, mine); err != nil {
		return nil, err
	}

	peer, err := readHandshake(raw)
	if err != nil {
		return nil, err
	}
	if peer.Version != VersionMagic || peer.Family != family {
		_ = raw.Close()
		return nil, ErrHandshakeMismatch
	}
	return NewConn(raw, family), nil
}
