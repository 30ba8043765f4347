package models

// AccessLevel is the permission carried by a share grant.
type AccessLevel string

const (
	Read  AccessLevel = "read"
	Write AccessLevel = "write"
)

// Valid reports whether the level is one of the known values.
func (a AccessLevel) Valid() bool {
	return a == Read || a == Write
}

// Covers reports whether a grant at this level satisfies a request for
// the given level. Write covers both levels, read covers only read.
func (a AccessLevel) Covers(requested AccessLevel) bool {
	if a == Write {
		return true
	}
	return a == Read && requested == Read
}

// ResourceKind identifies which table a change event refers to.
type ResourceKind string

const (
	KindFile      ResourceKind = "file"
	KindFileShare ResourceKind = "file_share"
	KindNode      ResourceKind = "node"
	KindNodeFile  ResourceKind = "node_file"
	KindNodeShare ResourceKind = "node_share"
	KindEdge      ResourceKind = "edge"
	KindChannel   ResourceKind = "channel"
	KindMessage   ResourceKind = "message"
	KindGroup     ResourceKind = "group"
)
