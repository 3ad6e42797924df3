package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlMarentu/mobs-go/core"
)

type thing struct {
	core.Record
	A *core.LeafField[string]
	B *core.LeafField[string]
}

func newThing() *thing {
	r := core.NewRecord("Thing")
	t := &thing{Record: *r}
	t.A = core.NewLeaf[string](&t.Record, "a", core.Flag(core.Key1))
	t.B = core.NewLeaf[string](&t.Record, "b", core.Flag(core.Key2))
	return t
}

// Key escaping: colons and backslashes in key values stay unambiguous.
func TestIdentifierEscaping(t *testing.T) {
	th := newThing()
	th.A.Set("x:y")
	th.B.Set(`z\w`)
	id, err := core.Identifier(th)
	require.NoError(t, err)
	require.Equal(t, `Thing:x\:y:z\\w`, id)
}

func TestKeyStringNoKeyFields(t *testing.T) {
	r := core.NewRecord("NoKey")
	core.NewLeaf[string](r, "a")
	_, err := r.KeyString()
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)
}

// Embedded sub-records prepend their Prefix token regardless of the
// caller's UsePrefix hint.
func TestEmbeddedPrefix(t *testing.T) {
	outer := core.NewRecord("Outer")
	part := core.NewSubRecord(outer, "part", "Part", core.Flag(core.Embedded), core.WithPrefix("p_"))
	x := core.NewLeaf[int](part, "x")
	require.Equal(t, "p_x", x.GetName(core.NameHint{}))
	require.Equal(t, "p_x", x.GetName(core.NameHint{UsePrefix: true}))
}

// A non-embedded sub-record's Prefix only applies when the hint requests it.
func TestNonEmbeddedPrefixOnlyWithHint(t *testing.T) {
	outer := core.NewRecord("Outer")
	sub := core.NewSubRecord(outer, "sub", "Sub", core.WithPrefix("s_"))
	x := core.NewLeaf[int](sub, "x")
	require.Equal(t, "x", x.GetName(core.NameHint{}))
	require.Equal(t, "s_x", x.GetName(core.NameHint{UsePrefix: true}))
}

func TestAltNameAndLowercase(t *testing.T) {
	r := core.NewRecord("R")
	l := core.NewLeaf[string](r, "MyField", core.WithAltName("my_field"))
	require.Equal(t, "MyField", l.GetName(core.NameHint{}))
	require.Equal(t, "my_field", l.GetName(core.NameHint{UseAltNames: true}))
	require.Equal(t, "my_field", l.GetName(core.NameHint{UseAltNames: true, ToLowercase: true}))
}

func TestLengthFlagClips(t *testing.T) {
	require.Equal(t, core.Length(1), core.Length(0))
	require.Equal(t, core.Length(9999), core.Length(100000))
}

// Mutating a leaf marks every ancestor non-null and
// modified.
func TestActivateChain(t *testing.T) {
	outer := core.NewRecord("Outer")
	sub := core.NewSubRecord(outer, "sub", "Sub")
	leaf := core.NewLeaf[int](sub, "x")

	require.False(t, outer.Modified())
	require.False(t, sub.Modified())

	leaf.Set(42)

	require.True(t, leaf.Modified())
	require.True(t, sub.Modified())
	require.True(t, outer.Modified())
	require.False(t, sub.IsNull())
	require.False(t, outer.IsNull())
}

// Null clears the value then marks modified.
func TestSetNullClearsThenMarksModified(t *testing.T) {
	r := core.NewRecord("R")
	l := core.NewLeaf[string](r, "s", core.Flag(core.InitialNull))
	l.Set("hi")
	l.SetNull()
	v, ok := l.Get()
	require.False(t, ok)
	require.Equal(t, "", v)
	require.True(t, l.IsNull())
	require.True(t, l.Modified())
}

type vehicle struct {
	core.Record
	Id    *core.LeafField[int]
	Type  *core.LeafField[string]
	Axles *core.LeafField[int]
}

func newVehicleType() *vehicle {
	r := core.NewRecord("Vehicle")
	v := &vehicle{Record: *r}
	v.Id = core.NewLeaf[int](&v.Record, "id", core.Flag(core.Key1))
	v.Type = core.NewLeaf[string](&v.Record, "type")
	v.Axles = core.NewLeaf[int](&v.Record, "axles", core.Flag(core.InitialNull))
	return v
}

// doCopy between identically-shaped records copies positionally.
func TestDoCopySameType(t *testing.T) {
	src := newVehicleType()
	src.Id.Set(7)
	src.Type.Set("Van")
	src.Axles.Set(4)

	dst := newVehicleType()
	require.NoError(t, core.CopyInto(dst, src))
	require.Equal(t, 7, mustInt(dst.Id))
	require.Equal(t, "Van", mustStr(dst.Type))
	require.Equal(t, 4, mustInt(dst.Axles))
}

// CarelessCopy matches by name and skips fields absent on either side.
func TestCarelessCopyByName(t *testing.T) {
	type shrunk struct {
		core.Record
		Id *core.LeafField[int]
	}
	src := newVehicleType()
	src.Id.Set(3)
	src.Type.Set("Bus")

	r := core.NewRecord("Vehicle")
	dst := &shrunk{Record: *r}
	dst.Id = core.NewLeaf[int](&dst.Record, "id")
	dst.Id.Set(99)

	require.NoError(t, core.CarelessCopy(dst, src))
	require.Equal(t, 3, mustInt(dst.Id))
}

// The strict copy refuses a type-name mismatch instead of degrading to the
// name-matched path.
func TestDoCopyTypeMismatchReturnsSchemaError(t *testing.T) {
	src := newThing()
	src.A.Set("x")
	dst := newVehicleType()

	err := core.CopyInto(dst, src)
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)
}

// A shape mismatch between same-named types is just as fatal on the strict
// path, and CarelessCopy remains the tolerant alternative.
func TestDoCopyShapeMismatchReturnsSchemaError(t *testing.T) {
	type shrunk struct {
		core.Record
		Id *core.LeafField[int]
	}
	src := newVehicleType()
	src.Id.Set(5)

	r := core.NewRecord("Vehicle")
	dst := &shrunk{Record: *r}
	dst.Id = core.NewLeaf[int](&dst.Record, "id")

	err := core.CopyInto(dst, src)
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)

	require.NoError(t, core.CarelessCopy(dst, src))
	require.Equal(t, 5, mustInt(dst.Id))
}

func mustInt(l *core.LeafField[int]) int {
	v, _ := l.Get()
	return v
}

func mustStr(l *core.LeafField[string]) string {
	v, _ := l.Get()
	return v
}

// An Embedded sub-record's DoObjBeg/DoObjEnd are not invoked, but its
// children are visited in place.
type countVisitor struct {
	objs int
	mems []string
}

func (c *countVisitor) DoObjBeg(r core.Recordish, cur core.TravCursor) error    { c.objs++; return nil }
func (c *countVisitor) DoObjEnd(r core.Recordish, cur core.TravCursor) error    { return nil }
func (c *countVisitor) DoArrayBeg(v core.VectorNode, cur core.TravCursor) error { return nil }
func (c *countVisitor) DoArrayEnd(v core.VectorNode, cur core.TravCursor) error { return nil }
func (c *countVisitor) DoMem(l core.Leaf, cur core.TravCursor) error {
	c.mems = append(c.mems, l.Name())
	return nil
}

func TestEmbeddedSkipsObjectBoundary(t *testing.T) {
	outer := core.NewRecord("Outer")
	core.NewLeaf[int](outer, "top")
	part := core.NewSubRecord(outer, "part", "Part", core.Flag(core.Embedded))
	core.NewLeaf[int](part, "x")

	var v countVisitor
	require.NoError(t, core.Traverse(outer, core.TravOptions{}, &v))
	require.Equal(t, 1, v.objs) // only the outer record opens a boundary
	require.Equal(t, []string{"top", "x"}, v.mems)
}

func TestVectorAutoGrow(t *testing.T) {
	r := core.NewRecord("R")
	vec := core.NewLeafVector[string](r, "items")
	require.Equal(t, 0, vec.Len())
	vec.Grow(3)
	require.Equal(t, 3, vec.Len())
	require.True(t, vec.Modified())
}

type versioned struct {
	core.Record
	Id  *core.LeafField[int]
	Ver *core.LeafField[uint32]
}

func newVersioned() *versioned {
	r := core.NewRecord("Versioned")
	v := &versioned{Record: *r}
	v.Id = core.NewLeaf[int](&v.Record, "id", core.Flag(core.Key1))
	v.Ver = core.NewLeaf[uint32](&v.Record, "ver", core.Flag(core.DbVersionField))
	return v
}

// A DbVersionField leaf stays out of the identifier but surfaces through
// the sidecar and Version.
func TestVersionFieldSidecarNotInKey(t *testing.T) {
	v := newVersioned()
	v.Id.Set(4)
	v.Ver.Set(7)

	key, ver, has, err := v.Record.KeyStringWithVersion()
	require.NoError(t, err)
	require.Equal(t, "4", key)
	require.True(t, has)
	require.Equal(t, int64(7), ver)

	id, err := core.Identifier(v)
	require.NoError(t, err)
	require.Equal(t, "Versioned:4", id)

	got, ok := v.Record.Version()
	require.True(t, ok)
	require.Equal(t, int64(7), got)
}

// TraverseKey yields key leaves in key-position order, not declaration
// order, with KeyMode set on every cursor.
func TestTraverseKeyVisitsKeysInPositionOrder(t *testing.T) {
	r := core.NewRecord("Ordered")
	core.NewLeaf[string](r, "b", core.Flag(core.Key2))
	core.NewLeaf[string](r, "a", core.Flag(core.Key1))
	core.NewLeaf[string](r, "plain")

	var v countVisitor
	require.NoError(t, core.TraverseKey(r, false, &v))
	require.Equal(t, []string{"a", "b"}, v.mems)
}

func TestStartAuditCapturesFirstMutationOnly(t *testing.T) {
	v := newVehicleType()
	v.Type.Set("first")
	v.Record.StartAudit()
	v.Type.Set("second")
	v.Type.Set("third")

	old, ok := v.Type.AuditOld()
	require.True(t, ok)
	require.Equal(t, "first", old)

	v.Record.ClearAudit()
	_, ok = v.Type.AuditOld()
	require.False(t, ok)
}
