package core

import "fmt"

// VectorNode is the type-erased interface satisfied by LeafVector[T] and
// RecordVector, letting a Record's children list hold vectors of differing
// element types uniformly.
type VectorNode interface {
	Name() string
	IsNull() bool
	Modified() bool
	ClearModified()
	GetName(hint NameHint) string
	Len() int
	IsLeafVector() bool
	leafElemAt(i int) Leaf
	recordElemAt(i int) Recordish
	growLeaf() Leaf
	growRecord() Recordish
	truncate(n int)
	setNullVec()
	hasFeature(SchemaFlag) SchemaFlag
	getConf(SchemaFlag) (string, bool)
	doCopy(other VectorNode) error
}

// LeafVector is an ordered, auto-growing sequence of scalar leaves.
type LeafVector[T any] struct {
	base
	elems []*LeafField[T]
}

// NewLeafVector declares a leaf vector on owner.
func NewLeafVector[T any](owner *Record, name string, opts ...Option) *LeafVector[T] {
	v := &LeafVector[T]{}
	apply(&v.base, name, owner, opts)
	owner.addChild(child{kind: childVector, name: name, vector: v})
	return v
}

// Len reports the current element count.
func (v *LeafVector[T]) Len() int { return len(v.elems) }

// At returns the element at index i. Panics like a slice index if i is out
// of range; use Grow first to extend the vector.
func (v *LeafVector[T]) At(i int) *LeafField[T] { return v.elems[i] }

// Grow resizes the vector to exactly n elements, creating new zero-valued,
// non-null elements at the end or discarding trailing ones, then marks
// modified.
func (v *LeafVector[T]) Grow(n int) {
	for len(v.elems) < n {
		v.elems = append(v.elems, newVectorLeaf[T](v, nil))
	}
	if n < len(v.elems) {
		v.elems = v.elems[:n]
	}
	v.activate()
}

// IsLeafVector always reports true for LeafVector.
func (v *LeafVector[T]) IsLeafVector() bool { return true }

func (v *LeafVector[T]) leafElemAt(i int) Leaf        { return v.elems[i] }
func (v *LeafVector[T]) recordElemAt(i int) Recordish { return nil }

func (v *LeafVector[T]) growLeaf() Leaf {
	e := newVectorLeaf[T](v, nil)
	v.elems = append(v.elems, e)
	v.activate()
	return e
}

func (v *LeafVector[T]) growRecord() Recordish { return nil }

func (v *LeafVector[T]) truncate(n int) {
	if n < len(v.elems) {
		v.elems = v.elems[:n]
	}
	v.activate()
}

func (v *LeafVector[T]) setNullVec() {
	v.elems = nil
	v.markNull()
}

func (v *LeafVector[T]) GetName(hint NameHint) string { return getName(&v.base, hint) }

func (v *LeafVector[T]) activateFromChild() { v.activate() }
func (v *LeafVector[T]) ancestorInfo() ancestorInfo {
	return ancestorInfo{parent: v.parent}
}

func (v *LeafVector[T]) doCopy(other VectorNode) error {
	if !other.IsLeafVector() {
		return fmt.Errorf("core: cannot copy record vector %q into leaf vector %q", other.Name(), v.name)
	}
	o, ok := other.(*LeafVector[T])
	if !ok {
		return fmt.Errorf("core: element type mismatch copying vector %q", v.name)
	}
	if o.isNull {
		v.setNullVec()
		return nil
	}
	v.Grow(len(o.elems))
	for i, src := range o.elems {
		if err := v.elems[i].doCopy(src); err != nil {
			return err
		}
	}
	return nil
}

var _ VectorNode = (*LeafVector[int])(nil)

// RecordVector is an ordered, auto-growing sequence of sub-records sharing
// one declared element type.
type RecordVector struct {
	base
	typeName string
	newElem  func(parent parentLink, name string) Recordish
	elems    []Recordish
}

// NewRecordVector declares a sub-record vector on owner. factory builds a
// fresh zero-valued element wired to the given parent.
func NewRecordVector(owner *Record, name, typeName string, factory func(parent ParentLink, name string) Recordish, opts ...Option) *RecordVector {
	v := &RecordVector{typeName: typeName, newElem: factory}
	apply(&v.base, name, owner, opts)
	owner.addChild(child{kind: childVector, name: name, vector: v})
	return v
}

// Len reports the current element count.
func (v *RecordVector) Len() int { return len(v.elems) }

// At returns the element at index i.
func (v *RecordVector) At(i int) Recordish { return v.elems[i] }

// Grow resizes the vector to exactly n elements.
func (v *RecordVector) Grow(n int) {
	for len(v.elems) < n {
		v.elems = append(v.elems, v.newElem(v, v.name))
	}
	if n < len(v.elems) {
		v.elems = v.elems[:n]
	}
	v.activate()
}

func (v *RecordVector) IsLeafVector() bool { return false }

func (v *RecordVector) leafElemAt(i int) Leaf        { return nil }
func (v *RecordVector) recordElemAt(i int) Recordish { return v.elems[i] }

func (v *RecordVector) growLeaf() Leaf { return nil }

func (v *RecordVector) growRecord() Recordish {
	e := v.newElem(v, v.name)
	v.elems = append(v.elems, e)
	v.activate()
	return e
}

func (v *RecordVector) truncate(n int) {
	if n < len(v.elems) {
		v.elems = v.elems[:n]
	}
	v.activate()
}

func (v *RecordVector) setNullVec() {
	v.elems = nil
	v.markNull()
}

func (v *RecordVector) GetName(hint NameHint) string { return getName(&v.base, hint) }

func (v *RecordVector) activateFromChild() { v.activate() }
func (v *RecordVector) ancestorInfo() ancestorInfo {
	return ancestorInfo{parent: v.parent}
}

func (v *RecordVector) doCopy(other VectorNode) error {
	if other.IsLeafVector() {
		return fmt.Errorf("core: cannot copy leaf vector %q into record vector %q", other.Name(), v.name)
	}
	o, ok := other.(*RecordVector)
	if !ok || o.typeName != v.typeName {
		return fmt.Errorf("core: element type mismatch copying vector %q", v.name)
	}
	if o.isNull {
		v.setNullVec()
		return nil
	}
	v.Grow(len(o.elems))
	for i, src := range o.elems {
		if err := v.elems[i].doCopy(src); err != nil {
			return err
		}
	}
	return nil
}

var _ VectorNode = (*RecordVector)(nil)
