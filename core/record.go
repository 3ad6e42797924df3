package core

import (
	"fmt"
	"strings"

	"github.com/AlMarentu/mobs-go/convert"
)

// Recordish is satisfied by *Record and by every generated wrapper type that
// embeds one. The registry, vectors-of-records, and the traversal/navigator
// packages all operate through this interface rather than the concrete
// *Record type, so a caller's own struct embedding Record works everywhere
// a sub-record or a registered top-level type is expected.
type Recordish interface {
	parentLink
	Name() string
	IsNull() bool
	Modified() bool
	ClearModified()
	GetName(hint NameHint) string
	TypeName() string
	KeyString() (string, error)
	KeyStringWithVersion() (key string, version int64, hasVersion bool, err error)
	hasFeature(SchemaFlag) SchemaFlag
	getConf(SchemaFlag) (string, bool)
	children() []child
	setParent(p parentLink, name string)
	doCopy(other Recordish) error
	carelessCopy(others []child) error
	setNull()
}

// Record is the composite node of the meta-model: an ordered list of
// leaf, sub-record, and vector children, with the same null/modified state
// machine every schema-bearing node carries.
type Record struct {
	base
	typeName string
	kids     []child
}

// NewRecord declares a new top-level or nested record of the given
// registered type name, with no owner. To declare a record attached to an
// owner, call NewSubRecord instead; it cannot attach an existing record.
func NewRecord(typeName string, opts ...Option) *Record {
	r := &Record{typeName: typeName}
	apply(&r.base, typeName, nil, opts)
	return r
}

// NewSubRecord declares a nested record field on owner, in the position of
// this call relative to other New*/NewSubRecord/NewLeafVector/
// NewRecordVector calls against the same owner; declaration order is
// preserved.
func NewSubRecord(owner *Record, name, typeName string, opts ...Option) *Record {
	r := &Record{typeName: typeName}
	apply(&r.base, name, owner, opts)
	owner.addChild(child{kind: childRecord, name: name, record: r})
	return r
}

// NewElemRecord declares a record as an element of a RecordVector. Unlike
// NewSubRecord it is not appended to any Record's children list, since a
// vector owns its elements directly; a RecordVector factory calls this
// with the ParentLink NewRecordVector's growth machinery hands it.
func NewElemRecord(owner ParentLink, typeName string, opts ...Option) *Record {
	r := &Record{typeName: typeName}
	apply(&r.base, typeName, owner, opts)
	return r
}

func (r *Record) TypeName() string  { return r.typeName }
func (r *Record) children() []child { return r.kids }
func (r *Record) addChild(c child)  { r.kids = append(r.kids, c) }
func (r *Record) setParent(p parentLink, name string) {
	r.parent = p
	r.name = name
}

func (r *Record) GetName(hint NameHint) string { return getName(&r.base, hint) }

func (r *Record) activateFromChild() { r.activate() }

func (r *Record) ancestorInfo() ancestorInfo {
	info := ancestorInfo{parent: r.parent}
	if r.hasFeature(Embedded) != Unset {
		info.embedded = true
	}
	if f := r.hasFeature(Prefix); f != Unset {
		if tok, ok := r.getConf(f); ok {
			info.prefix = tok
			info.hasPrefix = true
		}
	}
	return info
}

// Clear resets every descendant to its zero value and null, the
// full-subtree counterpart to a single leaf's SetNull.
func (r *Record) Clear() {
	for _, c := range r.kids {
		switch c.kind {
		case childLeaf:
			c.leaf.SetNull()
		case childRecord:
			if sub, ok := c.record.(*Record); ok {
				sub.Clear()
			}
		case childVector:
			c.vector.setNullVec()
		}
	}
	r.isNull = true
}

// setNull clears the subtree and marks the record itself null, climbing to
// the parent like any other mutation.
func (r *Record) setNull() {
	r.Clear()
	r.markNull()
}

// ClearModifiedDeep clears the modified flag across the entire subtree
// rooted at r, typically called after a successful save.
func (r *Record) ClearModifiedDeep() {
	r.ClearModified()
	for _, c := range r.kids {
		switch c.kind {
		case childLeaf:
			c.leaf.ClearModified()
		case childRecord:
			if sub, ok := c.record.(*Record); ok {
				sub.ClearModifiedDeep()
			} else {
				c.record.ClearModified()
			}
		case childVector:
			c.vector.ClearModified()
		}
	}
}

// StartAudit arms audit-old-value capture on every leaf in the subtree,
// recursing into sub-records. Vector elements are not audited.
func (r *Record) StartAudit() {
	for _, c := range r.kids {
		switch c.kind {
		case childLeaf:
			if a, ok := c.leaf.(auditable); ok {
				a.StartAudit()
			}
		case childRecord:
			if sub, ok := c.record.(*Record); ok {
				sub.StartAudit()
			}
		}
	}
}

// ClearAudit disarms audit capture on every leaf in the subtree and
// discards any captured snapshots.
func (r *Record) ClearAudit() {
	for _, c := range r.kids {
		switch c.kind {
		case childLeaf:
			if a, ok := c.leaf.(auditable); ok {
				a.ClearAudit()
			}
		case childRecord:
			if sub, ok := c.record.(*Record); ok {
				sub.ClearAudit()
			}
		}
	}
}

type auditable interface {
	StartAudit()
	ClearAudit()
}

// KeyString builds the escaped, colon-joined identifier from this record's
// Key1..Key5 leaf fields, in key-position order. A key field that is
// currently null contributes an empty segment.
func (r *Record) KeyString() (string, error) {
	key, _, _, err := r.KeyStringWithVersion()
	return key, err
}

// keyStrVisitor collects key segments from a TraverseKey walk, routing a
// version leaf into the sidecar instead of the key itself.
type keyStrVisitor struct {
	segs       []string
	version    int64
	hasVersion bool
}

func (k *keyStrVisitor) DoObjBeg(r Recordish, cur TravCursor) error    { return nil }
func (k *keyStrVisitor) DoObjEnd(r Recordish, cur TravCursor) error    { return nil }
func (k *keyStrVisitor) DoArrayBeg(v VectorNode, cur TravCursor) error { return nil }
func (k *keyStrVisitor) DoArrayEnd(v VectorNode, cur TravCursor) error { return nil }

func (k *keyStrVisitor) DoMem(l Leaf, cur TravCursor) error {
	if l.IsVersionField() {
		if v, ok := l.ToDouble(); ok {
			k.version = int64(v)
			k.hasVersion = true
		}
		return nil
	}
	s, _ := l.ToStr(convert.ToStrHint{})
	k.segs = append(k.segs, escapeKey(s))
	return nil
}

// KeyStringWithVersion walks the same key traversal as KeyString but also
// captures a DbVersionField leaf's value into an int64 sidecar: the
// version is exposed separately as a numeric value rather than folded into
// the identifier string, and is never a key-position field itself.
// hasVersion is false when the record declares no DbVersionField leaf.
func (r *Record) KeyStringWithVersion() (string, int64, bool, error) {
	var kv keyStrVisitor
	if err := TraverseKey(r, true, &kv); err != nil {
		return "", 0, false, err
	}
	if len(kv.segs) == 0 {
		return "", 0, false, &SchemaError{Path: r.typeName, Err: fmt.Errorf("core: record %q has no key fields", r.typeName)}
	}
	return strings.Join(kv.segs, ":"), kv.version, kv.hasVersion, nil
}

// Version returns the current value of this record's DbVersionField leaf,
// if it declares one.
func (r *Record) Version() (int64, bool) {
	for _, c := range r.kids {
		if c.kind == childLeaf && c.leaf.IsVersionField() {
			v, ok := c.leaf.ToDouble()
			if !ok {
				return 0, false
			}
			return int64(v), true
		}
	}
	return 0, false
}

// escapeKey applies the key-string escaping rules: backslash doubles,
// colon is backslash-escaped.
func escapeKey(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	return s
}

// doCopy implements the strict object copy: the source must carry the same
// type name and a structurally identical child list, and children copy
// positionally in declaration order. A mismatch is a schema error, never a
// silent fallback; callers that want name-matched, gap-tolerant copying
// use CarelessCopy instead. A null source forces the destination null.
//
// The type check goes through the Recordish interface rather than asserting
// a concrete *Record, since a real schema is almost always declared as a
// named struct embedding Record (see cmd/mobsctl/model.go's Vehicle), whose
// dynamic type is never literally *Record.
func (r *Record) doCopy(other Recordish) error {
	if other.TypeName() != r.typeName {
		return &SchemaError{Path: r.typeName, Err: fmt.Errorf("core: cannot copy %q onto %q", other.TypeName(), r.typeName)}
	}
	if other.IsNull() {
		r.setNull()
		return nil
	}
	okids := other.children()
	if len(okids) != len(r.kids) {
		return &SchemaError{Path: r.typeName, Err: fmt.Errorf("core: child count mismatch copying %q: %d vs %d", r.typeName, len(okids), len(r.kids))}
	}
	for i, c := range r.kids {
		if err := copyChild(c, okids[i]); err != nil {
			return err
		}
	}
	return nil
}

// carelessCopy matches another record's children by declared name, ignoring
// children present on only one side and recursing carelessly into matched
// sub-records. The "only propagate a field whose value would change" guard
// lives one level down, in LeafField.doCopy, so it applies uniformly here
// and on the strict positional path.
func (r *Record) carelessCopy(others []child) error {
	byName := make(map[string]child, len(others))
	for _, c := range others {
		byName[c.name] = c
	}
	for _, c := range r.kids {
		oc, ok := byName[c.name]
		if !ok {
			continue
		}
		if oc.kind != c.kind {
			continue
		}
		switch c.kind {
		case childLeaf:
			if err := c.leaf.doCopy(oc.leaf); err != nil {
				return err
			}
		case childRecord:
			if oc.record.IsNull() {
				c.record.setNull()
				continue
			}
			if err := c.record.carelessCopy(oc.record.children()); err != nil {
				return err
			}
		case childVector:
			if err := c.vector.doCopy(oc.vector); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyChild(dst, src child) error {
	if dst.kind != src.kind {
		return &SchemaError{Path: dst.name, Err: fmt.Errorf("core: child kind mismatch at %q", dst.name)}
	}
	switch dst.kind {
	case childLeaf:
		return dst.leaf.doCopy(src.leaf)
	case childRecord:
		return dst.record.doCopy(src.record)
	case childVector:
		return dst.vector.doCopy(src.vector)
	}
	return nil
}

var _ Recordish = (*Record)(nil)
