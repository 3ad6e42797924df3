// Package navigator implements the stateful path cursor a streaming
// parser drives while assigning into a Record tree. It walks the same
// Record/Leaf/VectorNode shapes package core exposes, but unlike
// core.Traverse (a read-only recursive walk driven by an emitter) it is a
// mutable cursor a parser pushes/pops as it consumes nested container
// events, auto-growing vectors and tolerating unknown field names along
// the way.
package navigator

import (
	"fmt"
	"strings"

	"github.com/AlMarentu/mobs-go/convert"
	"github.com/AlMarentu/mobs-go/core"
)

// SetNullPolicy controls what an explicit null in the input stream does to
// a field, distinct from simply never mentioning it.
type SetNullPolicy int

const (
	// NullClear clears the field's value and marks it null (the default).
	NullClear SetNullPolicy = iota
	// NullForce sets the field null even if it declares no InitialNull
	// flag and would otherwise reject an explicit null.
	NullForce
	// NullExcept returns an error when an explicit null targets a field
	// that has not declared the InitialNull flag.
	NullExcept
	// NullIgnore silently discards an explicit null, leaving the field's
	// current value untouched.
	NullIgnore
	// NullOmit behaves like NullClear but never marks the field modified;
	// used when replaying a value that was already null going in.
	NullOmit
)

// Policy bundles the parsing-time behaviors a Navigator enforces.
type Policy struct {
	// AllowUnknown lets Enter on a name with no matching child push a
	// dummy frame (silently absorbing the subtree) instead of failing.
	AllowUnknown bool
	// AutoGrow lets EnterIndex extend a vector to reach an index beyond
	// its current length.
	AutoGrow bool
	// CaseInsensitive matches incoming field names without regard to case.
	CaseInsensitive bool
	// AcceptAltNames lets an incoming name match a field's declared
	// alternative name as well as its original one.
	AcceptAltNames bool
	// ShrinkArrays truncates a vector to the element count actually parsed
	// when a document supplies fewer elements than the target already holds.
	ShrinkArrays bool
	Null         SetNullPolicy
	FromStr      convert.FromStrHint
}

// DefaultPolicy rejects unknown fields, auto-grows vectors, and clears a
// field on explicit null.
func DefaultPolicy() Policy {
	return Policy{AllowUnknown: false, AutoGrow: true, Null: NullClear}
}

type frameKind int

const (
	frameRecord frameKind = iota
	frameLeaf
	frameVector
	frameDummy
)

type frame struct {
	kind frameKind
	rec  core.Recordish
	leaf core.Leaf
	vec  core.VectorNode
	name string
}

// Navigator is a stack-based cursor over a Record tree, rooted at the
// value passed to New.
type Navigator struct {
	policy Policy
	stack  []frame
}

// New creates a Navigator positioned at root.
func New(root core.Recordish, policy Policy) *Navigator {
	return &Navigator{policy: policy, stack: []frame{{kind: frameRecord, rec: root}}}
}

// top is the current frame; Navigator always has at least the root frame.
func (n *Navigator) top() frame { return n.stack[len(n.stack)-1] }

// path renders the cursor's current location for diagnostics, dot-joined;
// the root frame and index frames contribute nothing.
func (n *Navigator) path() string {
	var parts []string
	for _, f := range n.stack {
		if f.name != "" {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ".")
}

func (n *Navigator) pathWith(name string) string {
	if p := n.path(); p != "" {
		return p + "." + name
	}
	return name
}

// Depth reports how many frames deep the cursor currently is below root.
func (n *Navigator) Depth() int { return len(n.stack) - 1 }

// InDummy reports whether the current frame is an unknown-field sink.
func (n *Navigator) InDummy() bool { return n.top().kind == frameDummy }

// Enter descends into the named child of the current record frame: a leaf,
// a sub-record, or a vector. Entering a name that doesn't exist on the
// current record either errors or, under Policy.AllowUnknown, pushes a
// dummy frame that silently swallows everything nested inside it, so one
// unrecognized field doesn't abort an entire parse.
func (n *Navigator) Enter(name string) error {
	cur := n.top()
	if cur.kind == frameDummy {
		n.stack = append(n.stack, frame{kind: frameDummy, name: name})
		return nil
	}
	if cur.kind != frameRecord {
		return fmt.Errorf("navigator: cannot enter %q: current frame is not an object", name)
	}
	if c, ok := findChild(cur.rec, name, n.policy); ok {
		switch c.Kind {
		case core.ChildLeaf:
			n.stack = append(n.stack, frame{kind: frameLeaf, leaf: c.Leaf, name: name})
		case core.ChildRecord:
			n.stack = append(n.stack, frame{kind: frameRecord, rec: c.Record, name: name})
		case core.ChildVector:
			n.stack = append(n.stack, frame{kind: frameVector, vec: c.Vector, name: name})
		}
		return nil
	}
	if n.policy.AllowUnknown {
		n.stack = append(n.stack, frame{kind: frameDummy, name: name})
		return nil
	}
	return &core.SchemaError{Path: n.pathWith(name), Err: fmt.Errorf("navigator: no field %q on %s", name, cur.rec.TypeName())}
}

// EnterIndex descends into element i of the current vector frame, growing
// it first if i is beyond the current length and Policy.AutoGrow is set.
func (n *Navigator) EnterIndex(i int) error {
	cur := n.top()
	if cur.kind == frameDummy {
		n.stack = append(n.stack, frame{kind: frameDummy})
		return nil
	}
	if cur.kind != frameVector {
		return fmt.Errorf("navigator: cannot enter index %d: current frame is not an array", i)
	}
	if i >= cur.vec.Len() {
		if !n.policy.AutoGrow {
			return fmt.Errorf("navigator: index %d out of range (len %d)", i, cur.vec.Len())
		}
		core.GrowVector(cur.vec, i+1)
	}
	if cur.vec.IsLeafVector() {
		n.stack = append(n.stack, frame{kind: frameLeaf, leaf: core.LeafVectorElem(cur.vec, i)})
	} else {
		n.stack = append(n.stack, frame{kind: frameRecord, rec: core.RecordVectorElem(cur.vec, i)})
	}
	return nil
}

// Leave pops the current frame, returning to its parent. Leaving the root
// frame is an error.
func (n *Navigator) Leave() error {
	if len(n.stack) <= 1 {
		return fmt.Errorf("navigator: cannot leave root")
	}
	n.stack = n.stack[:len(n.stack)-1]
	return nil
}

// LeaveName pops the current frame after checking that it was entered under
// the given name; a mismatch is a structural error and leaves the cursor
// where it is.
func (n *Navigator) LeaveName(name string) error {
	if len(n.stack) <= 1 {
		return fmt.Errorf("navigator: cannot leave root")
	}
	if top := n.top().name; top != name {
		return &core.SchemaError{Path: n.path(), Err: fmt.Errorf("navigator: leave %q does not match entered %q", name, top)}
	}
	return n.Leave()
}

// Truncate shrinks the current vector frame to count elements, the hook a
// parser calls when it has seen an array close. It is a no-op unless
// Policy.ShrinkArrays is set; growing is never done here.
func (n *Navigator) Truncate(count int) error {
	cur := n.top()
	if cur.kind == frameDummy {
		return nil
	}
	if cur.kind != frameVector {
		return fmt.Errorf("navigator: cannot truncate: current frame is not an array")
	}
	if n.policy.ShrinkArrays && count < cur.vec.Len() {
		core.GrowVector(cur.vec, count)
	}
	return nil
}

// CurrentRecord returns the record at the current frame, if any.
func (n *Navigator) CurrentRecord() (core.Recordish, bool) {
	cur := n.top()
	return cur.rec, cur.kind == frameRecord
}

// CurrentVector returns the vector at the current frame, if any.
func (n *Navigator) CurrentVector() (core.VectorNode, bool) {
	cur := n.top()
	return cur.vec, cur.kind == frameVector
}

// CurrentLeaf returns the leaf at the current frame, if any.
func (n *Navigator) CurrentLeaf() (core.Leaf, bool) {
	cur := n.top()
	return cur.leaf, cur.kind == frameLeaf
}

// SetStr assigns s to the current leaf frame's value.
func (n *Navigator) SetStr(s string) error {
	cur := n.top()
	if cur.kind == frameDummy {
		return nil
	}
	if cur.kind != frameLeaf {
		return fmt.Errorf("navigator: cannot set a string value: current frame is not a scalar")
	}
	return cur.leaf.FromStr(s, n.policy.FromStr)
}

// SetInt assigns an integer to the current leaf frame's value.
func (n *Navigator) SetInt(v int64) error {
	cur := n.top()
	if cur.kind == frameDummy {
		return nil
	}
	if cur.kind != frameLeaf {
		return fmt.Errorf("navigator: cannot set an int value: current frame is not a scalar")
	}
	return cur.leaf.FromInt64(v)
}

// SetUint assigns an unsigned integer to the current leaf frame's value.
func (n *Navigator) SetUint(v uint64) error {
	cur := n.top()
	if cur.kind == frameDummy {
		return nil
	}
	if cur.kind != frameLeaf {
		return fmt.Errorf("navigator: cannot set a uint value: current frame is not a scalar")
	}
	return cur.leaf.FromUint64(v)
}

// SetFloat assigns a float to the current leaf frame's value.
func (n *Navigator) SetFloat(v float64) error {
	cur := n.top()
	if cur.kind == frameDummy {
		return nil
	}
	if cur.kind != frameLeaf {
		return fmt.Errorf("navigator: cannot set a float value: current frame is not a scalar")
	}
	return cur.leaf.FromDouble(v)
}

// SetNull applies Policy.Null to the current frame.
func (n *Navigator) SetNull() error {
	cur := n.top()
	switch cur.kind {
	case frameDummy:
		return nil
	case frameLeaf:
		return n.applyNullLeaf(cur.leaf)
	case frameVector:
		switch n.policy.Null {
		case NullIgnore:
			return nil
		default:
			core.SetVectorNull(cur.vec)
			return nil
		}
	case frameRecord:
		switch n.policy.Null {
		case NullIgnore:
			return nil
		case NullExcept:
			if !core.AllowsInitialNull(cur.rec) {
				return &core.SchemaError{Path: n.path(), Err: fmt.Errorf("navigator: object %q does not accept null", cur.rec.TypeName())}
			}
			core.SetRecordNull(cur.rec)
			return nil
		default:
			core.SetRecordNull(cur.rec)
			return nil
		}
	}
	return nil
}

func (n *Navigator) applyNullLeaf(l core.Leaf) error {
	switch n.policy.Null {
	case NullIgnore:
		return nil
	case NullExcept:
		if !core.AllowsInitialNull(l) {
			return &core.SchemaError{Path: n.path(), Err: fmt.Errorf("navigator: field %q does not accept null", l.Name())}
		}
		l.SetNull()
		return nil
	case NullForce, NullClear:
		l.SetNull()
		return nil
	case NullOmit:
		wasModified := l.Modified()
		l.SetNull()
		if !wasModified {
			l.ClearModified()
		}
		return nil
	}
	return nil
}

// childrenOf exposes a record's children to the navigator without widening
// core's exported surface beyond what parsers need.
func childrenOf(r core.Recordish) []core.ChildInfo { return core.Children(r) }

// findChild resolves name against r's declared children, looking inside
// any Embedded sub-record too: the wire format has no nested object for
// one, so a parser must match its grandchildren by the same flat, possibly
// prefixed name an emitter produced them under.
func findChild(r core.Recordish, name string, policy Policy) (core.ChildInfo, bool) {
	for _, c := range childrenOf(r) {
		if nameMatches(c, name, policy) {
			return c, true
		}
		if c.Kind == core.ChildRecord && core.HasFlag(c.Record, core.Embedded) {
			if found, ok := findChild(c.Record, name, policy); ok {
				return found, true
			}
		}
	}
	return core.ChildInfo{}, false
}

// nameMatches compares an incoming name against the names an emitter could
// have written c under: its resolved original name, and, when the policy
// accepts them, its alternative name.
func nameMatches(c core.ChildInfo, name string, policy Policy) bool {
	equal := func(a, b string) bool { return a == b }
	if policy.CaseInsensitive {
		equal = strings.EqualFold
	}
	if equal(childResolvedName(c, core.NameHint{}), name) {
		return true
	}
	if policy.AcceptAltNames && equal(childResolvedName(c, core.NameHint{UseAltNames: true}), name) {
		return true
	}
	return false
}

// childResolvedName reports the name an emitter with the given hint would
// have written c under: identical to its declared name unless c sits
// behind an Embedded ancestor chain carrying a Prefix token, or declares
// an alternative name the hint selects.
func childResolvedName(c core.ChildInfo, hint core.NameHint) string {
	switch c.Kind {
	case core.ChildLeaf:
		return c.Leaf.GetName(hint)
	case core.ChildRecord:
		return c.Record.GetName(hint)
	case core.ChildVector:
		return c.Vector.GetName(hint)
	default:
		return c.Name
	}
}
