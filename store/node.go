package store

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

// nodeMap is the persisted representation of one level of a tree: a
// mapping from path step to the key of the child (contents or a
// further node). It is encoded deterministically so that equal maps
// hash to equal keys, independent of iteration order.
type nodeMap map[string]model.Key

func encodeNode(m nodeMap) []byte {
	steps := make([]string, 0, len(m))
	for k := range m {
		steps = append(steps, k)
	}
	sort.Strings(steps)

	buf := make([]byte, 0, 8+len(m)*(2+hash.Size+1))
	buf = appendUint32(buf, uint32(len(steps)))
	for _, step := range steps {
		entry := m[step]
		buf = appendUint16(buf, uint16(len(step)))
		buf = append(buf, step...)
		buf = append(buf, byte(entry.Kind))
		buf = append(buf, entry.Hash[:]...)
	}
	return buf
}

func decodeNode(data []byte) (nodeMap, error) {
	m := make(nodeMap)
	pos := 0
	readUint32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("store: truncated node encoding")
		}
		v := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, nil
	}
	readUint16 := func() (uint16, error) {
		if pos+2 > len(data) {
			return 0, fmt.Errorf("store: truncated node encoding")
		}
		v := binary.BigEndian.Uint16(data[pos : pos+2])
		pos += 2
		return v, nil
	}

	count, err := readUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		nameLen, err := readUint16()
		if err != nil {
			return nil, err
		}
		if pos+int(nameLen) > len(data) {
			return nil, fmt.Errorf("store: truncated node encoding")
		}
		name := string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)

		if pos+1+hash.Size > len(data) {
			return nil, fmt.Errorf("store: truncated node encoding")
		}
		kind := model.Kind(data[pos])
		pos++
		var h hash.Hash
		copy(h[:], data[pos:pos+hash.Size])
		pos += hash.Size

		m[name] = model.Key{Kind: kind, Hash: h}
	}
	return m, nil
}

// DecodeNodeChildren decodes a stored node's immediate children as a
// flat slice of keys, for callers outside this package (such as repo
// export) that need to walk the object graph without depending on the
// unexported nodeMap representation.
func DecodeNodeChildren(data []byte) ([]model.Key, error) {
	m, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	out := make([]model.Key, 0, len(m))
	for _, k := range m {
		out = append(out, k)
	}
	return out, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// blobFindAdder is the subset of ObjectStore that structural node
// merge needs; both the in-memory and badger-backed node stores
// implement it and share this single merge algorithm.
type blobFindAdder interface {
	Find(h hash.Hash) ([]byte, bool)
	UnsafeAdd(h hash.Hash, data []byte) error
}

func loadNodeMap(s blobFindAdder, h hash.Hash) (nodeMap, bool) {
	if h.IsZero() {
		return nodeMap{}, true
	}
	data, ok := s.Find(h)
	if !ok {
		return nil, false
	}
	m, err := decodeNode(data)
	if err != nil {
		return nil, false
	}
	return m, true
}

// mergeNodeStructural performs a three-way merge of two node maps
// (recursing into subtrees that changed on both sides), shared by
// every NodeStore implementation.
func mergeNodeStructural(s blobFindAdder, base, ours, theirs hash.Hash) (hash.Hash, bool, error) {
	if ours == theirs {
		return ours, false, nil
	}
	if base == ours {
		return theirs, false, nil
	}
	if base == theirs {
		return ours, false, nil
	}

	baseMap, _ := loadNodeMap(s, base)
	oursMap, okO := loadNodeMap(s, ours)
	theirsMap, okT := loadNodeMap(s, theirs)
	if !okO || !okT {
		return hash.Hash{}, true, nil
	}

	seen := make(map[string]struct{})
	for k := range baseMap {
		seen[k] = struct{}{}
	}
	for k := range oursMap {
		seen[k] = struct{}{}
	}
	for k := range theirsMap {
		seen[k] = struct{}{}
	}

	merged := make(nodeMap)
	conflict := false
	for step := range seen {
		bv, bok := baseMap[step]
		ov, ook := oursMap[step]
		tv, tok := theirsMap[step]

		switch {
		case ook && tok && ov == tv:
			merged[step] = ov
		case ook && !tok && bok && ov == bv:
			// theirs deleted it, ours left it unchanged: delete.
		case tok && !ook && bok && tv == bv:
			// ours deleted it, theirs left it unchanged: delete.
		case !bok && ook && !tok:
			merged[step] = ov
		case !bok && tok && !ook:
			merged[step] = tv
		case bok && !ook && !tok:
			// deleted on both sides.
		case ook && tok && bok && ov == bv && tv != bv:
			merged[step] = tv
		case ook && tok && bok && tv == bv && ov != bv:
			merged[step] = ov
		case ook && tok && ov.Kind == model.KindNode && tv.Kind == model.KindNode:
			var baseSub hash.Hash
			if bok && bv.Kind == model.KindNode {
				baseSub = bv.Hash
			}
			subHash, subConflict, err := mergeNodeStructural(s, baseSub, ov.Hash, tv.Hash)
			if err != nil {
				return hash.Hash{}, true, err
			}
			if subConflict {
				conflict = true
				merged[step] = ov
			} else {
				merged[step] = model.Key{Kind: model.KindNode, Hash: subHash}
			}
		default:
			conflict = true
			merged[step] = ov
		}
	}

	data := encodeNode(merged)
	newHash := hash.Of(data)
	if err := s.UnsafeAdd(newHash, data); err != nil {
		return hash.Hash{}, true, err
	}
	return newHash, conflict, nil
}
