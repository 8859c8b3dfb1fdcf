package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/icristescu/irmin-server/wire"
)

// RequestHeader identifies which command a request body belongs to
// (§4.2, §6). SpanContext is the optional OpenTracing span-context
// binary blob continued from the client's request span server-side,
// mirroring runtime/host/protocol's per-message SpanContext field.
type RequestHeader struct {
	Command     string
	SpanContext []byte
}

// ResponseHeader carries the status byte that opens every response
// frame (§4.2, §6).
type ResponseHeader struct {
	Status Status
}

// Conn is a framed bidirectional byte stream (§4.2): header/body
// framing, explicit flush discipline, and an error-reply helper. It
// knows nothing about sessions or commands; those live in package
// server.
type Conn struct {
	raw   net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	codec wire.Codec
}

// NewConn wraps raw with buffered framing using the given codec family
// for value bodies. The codec is fixed for the lifetime of the
// connection; it is negotiated once during the handshake.
func NewConn(raw net.Conn, family wire.Family) *Conn {
	return &Conn{
		raw:   raw,
		r:     bufio.NewReader(raw),
		w:     bufio.NewWriter(raw),
		codec: wire.For(family),
	}
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the underlying transport's remote address, used
// for logging.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func (c *Conn) readUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		if isEOF(err) {
			return 0, ErrPeerClosed
		}
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (c *Conn) readUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		if isEOF(err) {
			return 0, ErrPeerClosed
		}
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (c *Conn) writeUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := c.w.Write(buf[:])
	return err
}

func (c *Conn) writeUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := c.w.Write(buf[:])
	return err
}

// ReadRequestHeader reads {len:u16 name:utf8[len] spanLen:u16
// span:[spanLen]} (§4.2, §6). A clean EOF before any byte of the
// header is read surfaces as ErrPeerClosed so the dispatch loop can
// terminate gracefully (§4.5 step 1).
func (c *Conn) ReadRequestHeader() (RequestHeader, error) {
	nameLen, err := c.readUint16()
	if err != nil {
		return RequestHeader{}, err
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(c.r, nameBuf); err != nil {
		if isEOF(err) {
			return RequestHeader{}, ErrPeerClosed
		}
		return RequestHeader{}, err
	}

	spanLen, err := c.readUint16()
	if err != nil {
		return RequestHeader{}, err
	}
	var span []byte
	if spanLen > 0 {
		span = make([]byte, spanLen)
		if _, err := io.ReadFull(c.r, span); err != nil {
			if isEOF(err) {
				return RequestHeader{}, ErrPeerClosed
			}
			return RequestHeader{}, err
		}
	}

	return RequestHeader{Command: string(nameBuf), SpanContext: span}, nil
}

// WriteRequestHeader writes a request header without flushing.
func (c *Conn) WriteRequestHeader(h RequestHeader) error {
	if len(h.Command) > 0xFFFF || len(h.SpanContext) > 0xFFFF {
		return fmt.Errorf("protocol: request header field too long")
	}
	if err := c.writeUint16(uint16(len(h.Command))); err != nil {
		return err
	}
	if _, err := c.w.WriteString(h.Command); err != nil {
		return err
	}
	if err := c.writeUint16(uint16(len(h.SpanContext))); err != nil {
		return err
	}
	_, err := c.w.Write(h.SpanContext)
	return err
}

// ReadResponseHeader reads the status byte opening a response frame.
func (c *Conn) ReadResponseHeader() (ResponseHeader, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		if isEOF(err) {
			return ResponseHeader{}, ErrPeerClosed
		}
		return ResponseHeader{}, err
	}
	return ResponseHeader{Status: Status(b)}, nil
}

// WriteResponseHeader writes the status byte opening a response frame,
// without flushing.
func (c *Conn) WriteResponseHeader(h ResponseHeader) error {
	return c.w.WriteByte(byte(h.Status))
}

// ReadErrorMessage reads the length-prefixed error message following a
// StatusError response header.
func (c *Conn) ReadErrorMessage() (string, error) {
	n, err := c.readUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if isEOF(err) {
			return "", ErrPeerClosed
		}
		return "", err
	}
	return string(buf), nil
}

// WriteErrorMessage writes a length-prefixed error message, without
// flushing.
func (c *Conn) WriteErrorMessage(msg string) error {
	if err := c.writeUint32(uint32(len(msg))); err != nil {
		return err
	}
	_, err := c.w.WriteString(msg)
	return err
}

// ReadValue decodes a request/response body of the given command's
// type into out, using the connection's negotiated codec.
func (c *Conn) ReadValue(out interface{}) error {
	n, err := c.readUint32()
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if isEOF(err) {
			return ErrPeerClosed
		}
		return err
	}
	return c.codec.Decode(buf, out)
}

// WriteValue encodes v with the connection's negotiated codec and
// writes it length-prefixed, without flushing.
func (c *Conn) WriteValue(v interface{}) error {
	data, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	if err := c.writeUint32(uint32(len(data))); err != nil {
		return err
	}
	_, err = c.w.Write(data)
	return err
}

// ReplyOK writes a successful response header and body, without
// flushing — callers flush once after the full response is written
// (§4.2).
func (c *Conn) ReplyOK(body interface{}) error {
	if err := c.WriteResponseHeader(ResponseHeader{Status: StatusOK}); err != nil {
		return err
	}
	return c.WriteValue(body)
}

// ReplyError writes an error response header and message, without
// flushing.
func (c *Conn) ReplyError(message string) error {
	if err := c.WriteResponseHeader(ResponseHeader{Status: StatusError}); err != nil {
		return err
	}
	return c.WriteErrorMessage(message)
}

// WriteWatchNotification writes an asynchronous status=2 frame (§6)
// carrying a tagged-variant payload; it flushes immediately since it is
// not paired with a request and may be interleaved between a request
// and its own response (§5 "never split a request/response pair" is
// enforced by the dispatch loop only writing notifications between
// requests, not mid-response).
func (c *Conn) WriteWatchNotification(payload interface{}) error {
	if err := c.WriteResponseHeader(ResponseHeader{Status: StatusWatch}); err != nil {
		return err
	}
	if err := c.WriteValue(payload); err != nil {
		return err
	}
	return c.Flush()
}

// Flush flushes buffered writes to the transport.
func (c *Conn) Flush() error {
	return c.w.Flush()
}
