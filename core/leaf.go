package core

import "github.com/AlMarentu/mobs-go/convert"

// Leaf is the type-erased interface every LeafField[T] satisfies, so a
// Record's children list can hold leaves of differing T uniformly.
type Leaf interface {
	Name() string
	IsNull() bool
	Modified() bool
	ClearModified()
	KeyPosition() int
	IsVersionField() bool
	IsCharType() bool
	GetName(hint NameHint) string
	ToStr(hint convert.ToStrHint) (string, bool) // ok=false means value is null
	FromStr(s string, hint convert.FromStrHint) error
	FromInt64(int64) error
	FromUint64(uint64) error
	FromDouble(float64) error
	ToDouble() (float64, bool)
	SetNull()
	Info() MemberInfo
	hasFeature(SchemaFlag) SchemaFlag
	getConf(SchemaFlag) (string, bool)
	doCopy(other Leaf) error
}

// LeafField is a typed scalar child of a Record or a leaf-vector. T is
// constrained only by what package convert can coerce (string, bool, the
// signed/unsigned integer kinds, float32/64, time.Time, and []byte).
type LeafField[T any] struct {
	base
	value    T
	auditing bool
	auditOld T
	hasAudit bool
}

// NewLeaf declares a new leaf field on owner, appended to its child list in
// declaration order.
func NewLeaf[T any](owner *Record, name string, opts ...Option) *LeafField[T] {
	lf := &LeafField[T]{}
	apply(&lf.base, name, owner, opts)
	owner.addChild(child{kind: childLeaf, name: name, leaf: lf})
	return lf
}

// newVectorLeaf declares a leaf used as a vector element; its parent is the
// owning vector rather than a Record.
func newVectorLeaf[T any](owner parentLink, opts []Option) *LeafField[T] {
	lf := &LeafField[T]{}
	apply(&lf.base, "", owner, opts)
	return lf
}

// Get returns the current value and whether the field is non-null.
func (l *LeafField[T]) Get() (T, bool) {
	if l.isNull {
		var zero T
		return zero, false
	}
	return l.value, true
}

// Set assigns v, clearing null and marking modified. The first mutation
// after StartAudit snapshots the pre-mutation value.
func (l *LeafField[T]) Set(v T) {
	l.snapshotForAudit()
	l.value = v
	l.activate()
}

// SetNull clears the value to its zero form and marks the field null.
func (l *LeafField[T]) SetNull() {
	l.snapshotForAudit()
	var zero T
	l.value = zero
	l.markNull()
}

// KeyPosition returns 1..5 for Key1..Key5, or 0.
func (l *LeafField[T]) KeyPosition() int {
	if f := l.hasFeature(anyKey); f != Unset {
		return keyPosition(f)
	}
	return 0
}

// IsVersionField reports the DbVersionField flag.
func (l *LeafField[T]) IsVersionField() bool {
	return l.hasFeature(DbVersionField) != Unset
}

// IsCharType reports whether this leaf's text form must be quoted in JSON
// and rendered as element text (never a bare XML attribute number).
func (l *LeafField[T]) IsCharType() bool { return convert.IsCharType[T]() }

// GetName resolves the serialized name, honoring alt names, prefixes, and
// embedded ancestors.
func (l *LeafField[T]) GetName(hint NameHint) string { return getName(&l.base, hint) }

// ToStr renders the current value; ok is false when the field is null.
func (l *LeafField[T]) ToStr(hint convert.ToStrHint) (string, bool) {
	if l.isNull {
		return "", false
	}
	compact := l.hasFeature(DbCompact) != Unset
	hint.Compact = hint.Compact || compact
	return convert.ToStr(l.value, hint), true
}

// FromStr parses s into the field, clearing null and marking modified.
func (l *LeafField[T]) FromStr(s string, hint convert.FromStrHint) error {
	l.snapshotForAudit()
	if err := convert.FromStr(&l.value, s, hint); err != nil {
		return err
	}
	l.activate()
	return nil
}

// FromInt64 assigns a numeric value parsed by a JSON/navigator caller.
func (l *LeafField[T]) FromInt64(v int64) error {
	l.snapshotForAudit()
	if err := convert.FromInt64(&l.value, v); err != nil {
		return err
	}
	l.activate()
	return nil
}

// FromUint64 assigns an unsigned numeric value (used for version fields).
func (l *LeafField[T]) FromUint64(v uint64) error {
	l.snapshotForAudit()
	if err := convert.FromUint64(&l.value, v); err != nil {
		return err
	}
	l.activate()
	return nil
}

// FromDouble assigns a floating-point value.
func (l *LeafField[T]) FromDouble(v float64) error {
	l.snapshotForAudit()
	if err := convert.FromDouble(&l.value, v); err != nil {
		return err
	}
	l.activate()
	return nil
}

// ToDouble reports the current value as a float64, if numeric.
func (l *LeafField[T]) ToDouble() (float64, bool) {
	if l.isNull {
		return 0, false
	}
	return convert.ToDouble(l.value)
}

// Info returns a MemberInfo snapshot of the current value.
func (l *LeafField[T]) Info() MemberInfo {
	return convert.Info(l.value)
}

// StartAudit arms audit-old-value capture for the next mutation.
func (l *LeafField[T]) StartAudit() { l.auditing = true }

// ClearAudit disarms audit capture and discards any captured snapshot.
func (l *LeafField[T]) ClearAudit() {
	l.auditing = false
	l.hasAudit = false
}

// AuditOld returns the value captured at the first mutation since
// StartAudit, if any mutation has happened.
func (l *LeafField[T]) AuditOld() (T, bool) {
	if !l.hasAudit {
		var zero T
		return zero, false
	}
	return l.auditOld, true
}

func (l *LeafField[T]) snapshotForAudit() {
	if l.auditing && !l.hasAudit {
		l.auditOld = l.value
		l.hasAudit = true
	}
}

// doCopy copies another leaf's value onto this one: same-type fast
// assignment, falling back to ToStr/FromStr for heterogeneous leaf pairs
// (carelessCopy across differently-typed same-named fields).
//
// A copy only propagates when it would actually change the destination, or
// when the destination is already marked modified; an unchanged serialized
// form must not toggle the modified flag. Comparing serialized forms lets
// the same check cover the heterogeneous path.
func (l *LeafField[T]) doCopy(other Leaf) error {
	if l.unchangedFrom(other) {
		return nil
	}
	if o, ok := other.(*LeafField[T]); ok {
		if o.isNull {
			l.SetNull()
			return nil
		}
		l.Set(o.value)
		return nil
	}
	s, ok := other.ToStr(convert.ToStrHint{})
	if !ok {
		l.SetNull()
		return nil
	}
	return l.FromStr(s, convert.FromStrHint{Extended: true})
}

// unchangedFrom reports whether copying other onto l would leave l as it
// already is, in which case doCopy must skip the write rather than toggle
// modified on a value that didn't change. A destination already marked
// modified is never considered unchanged, since it must stay modified
// regardless of what this particular copy does.
func (l *LeafField[T]) unchangedFrom(other Leaf) bool {
	if l.Modified() {
		return false
	}
	if l.isNull != other.IsNull() {
		return false
	}
	if l.isNull {
		return true
	}
	ls, _ := l.ToStr(convert.ToStrHint{})
	os, _ := other.ToStr(convert.ToStrHint{})
	return ls == os
}

var _ Leaf = (*LeafField[int])(nil)
