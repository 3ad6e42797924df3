package navigator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlMarentu/mobs-go/core"
	"github.com/AlMarentu/mobs-go/navigator"
)

type part struct {
	core.Record
	Id *core.LeafField[int]
}

func newPart(parent core.ParentLink, name string) core.Recordish {
	p := &part{}
	p.Record = *core.NewElemRecord(parent, "Part")
	p.Id = core.NewLeaf[int](&p.Record, "id")
	return p
}

type gadget struct {
	core.Record
	Name  *core.LeafField[string]
	Count *core.LeafField[int]
	Tag   *core.LeafField[string]
	Parts *core.RecordVector
}

func newGadget() *gadget {
	r := core.NewRecord("Gadget")
	g := &gadget{Record: *r}
	g.Name = core.NewLeaf[string](&g.Record, "name")
	g.Count = core.NewLeaf[int](&g.Record, "count")
	g.Tag = core.NewLeaf[string](&g.Record, "tag", core.Flag(core.InitialNull))
	g.Parts = core.NewRecordVector(&g.Record, "parts", "Part", newPart)
	return g
}

func TestEnterLeafSetAndLeave(t *testing.T) {
	g := newGadget()
	n := navigator.New(&g.Record, navigator.DefaultPolicy())

	require.NoError(t, n.Enter("name"))
	require.NoError(t, n.SetStr("widget"))
	require.NoError(t, n.Leave())

	require.NoError(t, n.Enter("count"))
	require.NoError(t, n.SetInt(5))
	require.NoError(t, n.Leave())

	v, _ := g.Name.Get()
	require.Equal(t, "widget", v)
	c, _ := g.Count.Get()
	require.Equal(t, 5, c)
}

func TestEnterUnknownFieldErrorsByDefault(t *testing.T) {
	g := newGadget()
	n := navigator.New(&g.Record, navigator.DefaultPolicy())
	err := n.Enter("nonexistent")
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)
}

// AllowUnknown absorbs an entire unrecognized subtree, including nested
// enters, without touching any real field.
func TestAllowUnknownAbsorbsSubtree(t *testing.T) {
	g := newGadget()
	policy := navigator.DefaultPolicy()
	policy.AllowUnknown = true
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("extra"))
	require.True(t, n.InDummy())
	require.NoError(t, n.Enter("nested"))
	require.True(t, n.InDummy())
	require.NoError(t, n.SetStr("ignored"))
	require.NoError(t, n.Leave())
	require.NoError(t, n.Leave())

	name, ok := g.Name.Get()
	require.True(t, ok) // "name" declares no InitialNull, so it starts non-null
	require.Equal(t, "", name)
	require.False(t, g.Name.Modified())
}

// Entering an index beyond a vector's current length
// auto-grows it under the default policy.
func TestEnterIndexAutoGrowsVector(t *testing.T) {
	g := newGadget()
	n := navigator.New(&g.Record, navigator.DefaultPolicy())

	require.NoError(t, n.Enter("parts"))
	require.NoError(t, n.EnterIndex(2))
	rec, ok := n.CurrentRecord()
	require.True(t, ok)
	require.Equal(t, "Part", rec.TypeName())
	require.NoError(t, n.Leave())
	require.NoError(t, n.Leave())

	require.Equal(t, 3, g.Parts.Len())
}

func TestEnterIndexWithoutAutoGrowErrors(t *testing.T) {
	g := newGadget()
	policy := navigator.DefaultPolicy()
	policy.AutoGrow = false
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("parts"))
	require.Error(t, n.EnterIndex(0))
}

func TestSetNullExceptRejectsFieldWithoutInitialNull(t *testing.T) {
	g := newGadget()
	policy := navigator.DefaultPolicy()
	policy.Null = navigator.NullExcept
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("name"))
	err := n.SetNull()
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)
}

func TestSetNullExceptAllowsFieldWithInitialNull(t *testing.T) {
	g := newGadget()
	policy := navigator.DefaultPolicy()
	policy.Null = navigator.NullExcept
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("tag"))
	require.NoError(t, n.SetNull())
	require.NoError(t, n.Leave())
	require.True(t, g.Tag.IsNull())
}

func TestSetNullIgnoreLeavesValueUntouched(t *testing.T) {
	g := newGadget()
	g.Name.Set("kept")
	policy := navigator.DefaultPolicy()
	policy.Null = navigator.NullIgnore
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("name"))
	require.NoError(t, n.SetNull())
	require.NoError(t, n.Leave())

	v, ok := g.Name.Get()
	require.True(t, ok)
	require.Equal(t, "kept", v)
}

func TestLeaveRootErrors(t *testing.T) {
	g := newGadget()
	n := navigator.New(&g.Record, navigator.DefaultPolicy())
	require.Error(t, n.Leave())
}

type withEngine struct {
	core.Record
	Label      *core.LeafField[string]
	Horsepower *core.LeafField[int]
}

func newWithEngine() *withEngine {
	r := core.NewRecord("WithEngine")
	w := &withEngine{Record: *r}
	w.Label = core.NewLeaf[string](&w.Record, "label")
	engine := core.NewSubRecord(&w.Record, "engine", "Engine", core.Flag(core.Embedded), core.WithPrefix("e_"))
	w.Horsepower = core.NewLeaf[int](engine, "hp")
	return w
}

// A field declared inside an Embedded sub-record is addressed by its
// flattened, prefixed name directly on the enclosing object's frame; the
// wire format never nests it.
func TestEnterResolvesFlattenedEmbeddedFieldName(t *testing.T) {
	w := newWithEngine()
	n := navigator.New(&w.Record, navigator.DefaultPolicy())

	require.NoError(t, n.Enter("e_hp"))
	require.NoError(t, n.SetInt(250))
	require.NoError(t, n.Leave())

	hp, _ := w.Horsepower.Get()
	require.Equal(t, 250, hp)
}

func TestLeaveNameChecksEnteredName(t *testing.T) {
	g := newGadget()
	n := navigator.New(&g.Record, navigator.DefaultPolicy())

	require.NoError(t, n.Enter("name"))
	err := n.LeaveName("count")
	var serr *core.SchemaError
	require.ErrorAs(t, err, &serr)
	require.NoError(t, n.LeaveName("name"))
	require.Equal(t, 0, n.Depth())
}

func TestCaseInsensitiveEnter(t *testing.T) {
	g := newGadget()
	policy := navigator.DefaultPolicy()
	policy.CaseInsensitive = true
	n := navigator.New(&g.Record, policy)

	require.NoError(t, n.Enter("NAME"))
	require.NoError(t, n.SetStr("widget"))
	require.NoError(t, n.Leave())

	v, _ := g.Name.Get()
	require.Equal(t, "widget", v)
}

func TestAcceptAltNamesResolvesAlternativeName(t *testing.T) {
	rec := core.NewRecord("Alt")
	serial := core.NewLeaf[string](rec, "serial", core.WithAltName("sn"))

	strict := navigator.New(rec, navigator.DefaultPolicy())
	require.Error(t, strict.Enter("sn"))

	policy := navigator.DefaultPolicy()
	policy.AcceptAltNames = true
	n := navigator.New(rec, policy)
	require.NoError(t, n.Enter("sn"))
	require.NoError(t, n.SetStr("A-1"))
	require.NoError(t, n.Leave())

	v, _ := serial.Get()
	require.Equal(t, "A-1", v)
}
