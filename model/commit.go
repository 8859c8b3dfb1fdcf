package model

import (
	"encoding/binary"

	"github.com/icristescu/irmin-server/hash"
)

// Commit is the tuple (info, parents, tree) — immutable once created.
type Commit struct {
	Info    Info
	Parents []hash.Hash
	Tree    hash.Hash
}

// canonicalBytes produces a deterministic byte encoding used only to
// derive the commit's content hash; it is independent of whichever
// wire codec family (amino/cbor) a connection negotiated, so a commit's
// key never depends on how a particular client happened to serialize
// it.
func (c *Commit) canonicalBytes() []byte {
	buf := make([]byte, 0, 64+len(c.Parents)*hash.Size)

	buf = appendUint64(buf, uint64(len(c.Info.Author)))
	buf = append(buf, c.Info.Author...)
	buf = appendUint64(buf, uint64(len(c.Info.Message)))
	buf = append(buf, c.Info.Message...)
	buf = appendUint64(buf, uint64(c.Info.Timestamp))

	buf = appendUint64(buf, uint64(len(c.Parents)))
	for _, p := range c.Parents {
		buf = append(buf, p[:]...)
	}

	buf = append(buf, c.Tree[:]...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Hash returns the content-addressed key of the commit.
func (c *Commit) Hash() hash.Hash {
	return hash.Of(c.canonicalBytes())
}
