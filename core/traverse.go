package core

import "sort"

// TravCursor is the state a Visitor sees at each callback: which container
// it is inside, the current array index when applicable, whether the
// current node is null, and whether this walk is a key projection
// (KeyMode) rather than a full-field traversal. InNull is set for a leaf
// that is a record's direct child and for a vector's DoArrayBeg/DoArrayEnd;
// record callbacks and vector elements always see it false.
type TravCursor struct {
	InArray    bool
	ArrayIndex int
	InNull     bool
	KeyMode    bool
	// ArrayName is the enclosing vector's own resolved name, valid whenever
	// InArray is true. A format that needs a tag/key per repeated sibling
	// element (XML) uses this instead of the element's own declared name,
	// since every vector element renders as a repeated sibling sharing one
	// name: the vector's, not each element's own.
	ArrayName string
}

// TravOptions bundles the name-resolution and version-field-emission
// policy a caller configures a traversal with.
type TravOptions struct {
	Names        NameHint
	WithVersion  bool // include DbVersionField leaves in the walk
	ModifiedOnly bool // skip subtrees with Modified()==false
}

// Visitor is the mutating traversal shape: doObjBeg/doObjEnd bracket a
// Record, doArrayBeg/doArrayEnd bracket a vector, and doMem visits one leaf.
// Its method set is identical to ConstVisitor's; the parsers in this module
// assign through the Navigator in package navigator, not through a Visitor.
type Visitor interface {
	DoObjBeg(r Recordish, cur TravCursor) error
	DoObjEnd(r Recordish, cur TravCursor) error
	DoArrayBeg(v VectorNode, cur TravCursor) error
	DoArrayEnd(v VectorNode, cur TravCursor) error
	DoMem(l Leaf, cur TravCursor) error
}

// ConstVisitor is the read-only traversal shape used by emitters.
type ConstVisitor interface {
	DoObjBeg(r Recordish, cur TravCursor) error
	DoObjEnd(r Recordish, cur TravCursor) error
	DoArrayBeg(v VectorNode, cur TravCursor) error
	DoArrayEnd(v VectorNode, cur TravCursor) error
	DoMem(l Leaf, cur TravCursor) error
}

// Traverse walks r depth-first, calling back into visitor at each
// Record/vector boundary and at each leaf. It is read-only: visitors
// that need to mutate the tree (parsers) instead use the Navigator in
// package navigator, which drives the same shape of callback but owns a
// cursor that can create missing vector slots.
func Traverse(r Recordish, opts TravOptions, visitor ConstVisitor) error {
	return traverseRecord(r, TravCursor{}, opts, visitor)
}

func traverseRecord(r Recordish, cur TravCursor, opts TravOptions, visitor ConstVisitor) error {
	if opts.ModifiedOnly && !r.Modified() {
		return nil
	}
	if err := visitor.DoObjBeg(r, cur); err != nil {
		return err
	}
	if !r.IsNull() {
		for _, c := range r.children() {
			if err := traverseChild(c, opts, visitor); err != nil {
				return err
			}
		}
	}
	return visitor.DoObjEnd(r, cur)
}

func traverseChild(c child, opts TravOptions, visitor ConstVisitor) error {
	switch c.kind {
	case childLeaf:
		if opts.ModifiedOnly && !c.leaf.Modified() {
			return nil
		}
		if !opts.WithVersion && c.leaf.IsVersionField() {
			return nil
		}
		return visitor.DoMem(c.leaf, TravCursor{InNull: c.leaf.IsNull()})
	case childRecord:
		if c.record.hasFeature(Embedded) != Unset {
			return traverseEmbedded(c.record, opts, visitor)
		}
		return traverseRecord(c.record, TravCursor{}, opts, visitor)
	case childVector:
		return traverseVector(c.vector, opts, visitor)
	}
	return nil
}

// traverseEmbedded inlines an Embedded sub-record's children into the
// enclosing object instead of opening a nested one: DoObjBeg/DoObjEnd are
// skipped, but the sub-record's own fields are still visited, under the
// name each already resolves to via its Prefix token.
func traverseEmbedded(r Recordish, opts TravOptions, visitor ConstVisitor) error {
	if opts.ModifiedOnly && !r.Modified() {
		return nil
	}
	if r.IsNull() {
		return nil
	}
	for _, c := range r.children() {
		if err := traverseChild(c, opts, visitor); err != nil {
			return err
		}
	}
	return nil
}

func traverseVector(v VectorNode, opts TravOptions, visitor ConstVisitor) error {
	if opts.ModifiedOnly && !v.Modified() {
		return nil
	}
	arrName := v.GetName(opts.Names)
	beg := TravCursor{InArray: true, InNull: v.IsNull(), ArrayName: arrName}
	if err := visitor.DoArrayBeg(v, beg); err != nil {
		return err
	}
	if !v.IsNull() {
		for i := 0; i < v.Len(); i++ {
			cur := TravCursor{InArray: true, ArrayIndex: i, ArrayName: arrName}
			if v.IsLeafVector() {
				if err := visitor.DoMem(v.leafElemAt(i), cur); err != nil {
					return err
				}
			} else {
				if err := traverseRecord(v.recordElemAt(i), cur, opts, visitor); err != nil {
					return err
				}
			}
		}
	}
	return visitor.DoArrayEnd(v, beg)
}

// TraverseKey visits only r's key leaves, in ascending key position, with
// KeyMode set on every cursor the visitor sees. A DbVersionField leaf is
// visited too when withVersion is set, after the key fields; it carries no
// key position of its own. Duplicate key positions keep the first
// declaration and skip the rest.
func TraverseKey(r Recordish, withVersion bool, visitor ConstVisitor) error {
	cur := TravCursor{KeyMode: true}
	if err := visitor.DoObjBeg(r, cur); err != nil {
		return err
	}
	type keyed struct {
		pos  int
		leaf Leaf
	}
	var keys []keyed
	var version Leaf
	seen := map[int]bool{}
	for _, c := range r.children() {
		if c.kind != childLeaf {
			continue
		}
		if c.leaf.IsVersionField() {
			version = c.leaf
			continue
		}
		pos := c.leaf.KeyPosition()
		if pos == 0 || seen[pos] {
			continue
		}
		seen[pos] = true
		keys = append(keys, keyed{pos: pos, leaf: c.leaf})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].pos < keys[j].pos })
	for _, k := range keys {
		if err := visitor.DoMem(k.leaf, TravCursor{KeyMode: true, InNull: k.leaf.IsNull()}); err != nil {
			return err
		}
	}
	if withVersion && version != nil {
		if err := visitor.DoMem(version, TravCursor{KeyMode: true, InNull: version.IsNull()}); err != nil {
			return err
		}
	}
	return visitor.DoObjEnd(r, cur)
}
