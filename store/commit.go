package store

import (
	"encoding/binary"
	"fmt"

	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

// encodeCommit serializes a commit for storage. Distinct from
// Commit.Hash's canonical encoding: this one is only ever read back by
// decodeCommit on this same backend, so it does not need to be
// independent of the wire codec family.
func encodeCommit(c model.Commit) []byte {
	buf := make([]byte, 0, 64+len(c.Parents)*hash.Size)

	buf = appendUint32(buf, uint32(len(c.Info.Author)))
	buf = append(buf, c.Info.Author...)
	buf = appendUint32(buf, uint32(len(c.Info.Message)))
	buf = append(buf, c.Info.Message...)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(c.Info.Timestamp))
	buf = append(buf, tsBuf[:]...)

	buf = appendUint32(buf, uint32(len(c.Parents)))
	for _, p := range c.Parents {
		buf = append(buf, p[:]...)
	}
	buf = append(buf, c.Tree[:]...)
	return buf
}

func decodeCommit(data []byte) (model.Commit, error) {
	pos := 0
	readUint32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("store: truncated commit encoding")
		}
		v := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, nil
	}
	readString := func() (string, error) {
		n, err := readUint32()
		if err != nil {
			return "", err
		}
		if pos+int(n) > len(data) {
			return "", fmt.Errorf("store: truncated commit encoding")
		}
		s := string(data[pos : pos+int(n)])
		pos += int(n)
		return s, nil
	}

	var c model.Commit
	author, err := readString()
	if err != nil {
		return c, err
	}
	message, err := readString()
	if err != nil {
		return c, err
	}
	if pos+8 > len(data) {
		return c, fmt.Errorf("store: truncated commit encoding")
	}
	timestamp := int64(binary.BigEndian.Uint64(data[pos : pos+8]))
	pos += 8

	c.Info = model.Info{Author: author, Message: message, Timestamp: timestamp}

	parentCount, err := readUint32()
	if err != nil {
		return c, err
	}
	c.Parents = make([]hash.Hash, parentCount)
	for i := range c.Parents {
		if pos+hash.Size > len(data) {
			return c, fmt.Errorf("store: truncated commit encoding")
		}
		copy(c.Parents[i][:], data[pos:pos+hash.Size])
		pos += hash.Size
	}

	if pos+hash.Size > len(data) {
		return c, fmt.Errorf("store: truncated commit encoding")
	}
	copy(c.Tree[:], data[pos:pos+hash.Size])
	return c, nil
}

// SaveCommit persists the storage encoding of c, content-addressed by
// c.Hash (the canonical encoding), so a commit's key never depends on
// this backend's own storage layout.
func SaveCommit(repo *Repo, c model.Commit) hash.Hash {
	h := c.Hash()
	_ = repo.Commits.UnsafeAdd(h, encodeCommit(c))
	return h
}

// FindCommit looks up and decodes a commit by hash.
func FindCommit(repo *Repo, h hash.Hash) (model.Commit, bool) {
	data, ok := repo.Commits.Find(h)
	if !ok {
		return model.Commit{}, false
	}
	c, err := decodeCommit(data)
	if err != nil {
		return model.Commit{}, false
	}
	return c, true
}
