package model

// Contents is an opaque user payload. The store never interprets it;
// it only hashes, stores, and returns it verbatim. Serialization of the
// payload itself is delegated to the wire codec family in effect for
// the connection (see package wire).
type Contents []byte

// Info carries commit metadata: author, message, and timestamp, as
// specified by the Commit entity in the data model.
type Info struct {
	Author    string `json:"author"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// BranchName is an opaque branch identifier with equality.
type BranchName string

// Equal compares two branch names.
func (b BranchName) Equal(cmp BranchName) bool {
	return b == cmp
}
