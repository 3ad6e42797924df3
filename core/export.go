package core

// ChildKind distinguishes the three child shapes a record's children can
// hold, exposed for callers outside package core (navigator, jsonio,
// xmlio) that need to dispatch on it without reaching into unexported
// fields.
type ChildKind int

const (
	ChildLeaf ChildKind = iota
	ChildRecord
	ChildVector
)

// ChildInfo is the exported view of one declared child slot.
type ChildInfo struct {
	Kind   ChildKind
	Name   string
	Leaf   Leaf
	Record Recordish
	Vector VectorNode
}

// Children returns r's declared children in declaration order, for
// traversal/navigation code living outside package core.
func Children(r Recordish) []ChildInfo {
	kids := r.children()
	out := make([]ChildInfo, len(kids))
	for i, c := range kids {
		ci := ChildInfo{Name: c.name}
		switch c.kind {
		case childLeaf:
			ci.Kind = ChildLeaf
			ci.Leaf = c.leaf
		case childRecord:
			ci.Kind = ChildRecord
			ci.Record = c.record
		case childVector:
			ci.Kind = ChildVector
			ci.Vector = c.vector
		}
		out[i] = ci
	}
	return out
}

// GrowVector resizes v to exactly n elements.
func GrowVector(v VectorNode, n int) {
	for v.Len() < n {
		if v.IsLeafVector() {
			v.growLeaf()
		} else {
			v.growRecord()
		}
	}
	if n < v.Len() {
		v.truncate(n)
	}
}

// LeafVectorElem returns element i of a leaf vector.
func LeafVectorElem(v VectorNode, i int) Leaf { return v.leafElemAt(i) }

// RecordVectorElem returns element i of a sub-record vector.
func RecordVectorElem(v VectorNode, i int) Recordish { return v.recordElemAt(i) }

// SetVectorNull marks v null and discards its elements.
func SetVectorNull(v VectorNode) { v.setNullVec() }

// featured is satisfied by Leaf, Recordish, and VectorNode; it lets
// AllowsInitialNull and HasFlag work generically across them without
// duplicating the flag-lookup plumbing.
type featured interface {
	hasFeature(SchemaFlag) SchemaFlag
}

// AllowsInitialNull reports whether n (a Leaf or a Recordish) declared the
// InitialNull flag.
func AllowsInitialNull(n featured) bool { return n.hasFeature(InitialNull) != Unset }

// HasFlag reports whether n (a Leaf, Recordish, or VectorNode) declared the
// plain schema flag f, for callers outside package core that need to branch
// on XmlAsAttr, XmlEncrypt, Embedded, OTypeAsXRoot, and similar markers.
func HasFlag(n featured, f SchemaFlag) bool { return n.hasFeature(f) != Unset }

// SetRecordNull marks r null, clearing its subtree.
func SetRecordNull(r Recordish) { r.setNull() }

// Clone allocates a fresh instance of r's registered type and deep-copies
// r's subtree into it, the snapshot operation the object cache builds on:
// the returned value shares no state with r.
func Clone(r Recordish) (Recordish, error) {
	dst, err := New(r.TypeName())
	if err != nil {
		return nil, err
	}
	if err := dst.doCopy(r); err != nil {
		return nil, err
	}
	return dst, nil
}

// CopyInto deep-copies src's subtree onto dst in place, the counterpart
// Clone's caller uses to replay a cached snapshot over a live record
// rather than allocating a new one. It is strict: a type-name or shape
// mismatch between dst and src is a SchemaError.
func CopyInto(dst, src Recordish) error { return dst.doCopy(src) }

// CarelessCopy copies src onto dst by matching children by declared name,
// tolerating fields present on only one side; a null src forces dst null.
// Fields whose serialized form would not change do not toggle dst's
// modified flag.
func CarelessCopy(dst, src Recordish) error {
	if src.IsNull() {
		dst.setNull()
		return nil
	}
	return dst.carelessCopy(src.children())
}

// Identifier builds the canonical cache/pool key for r: the record's type
// name and key string, each individually escaped and colon-joined.
func Identifier(r Recordish) (string, error) {
	keys, err := r.KeyString()
	if err != nil {
		return "", err
	}
	return escapeKey(r.TypeName()) + ":" + keys, nil
}
