package jsonio_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlMarentu/mobs-go/core"
	"github.com/AlMarentu/mobs-go/jsonio"
	"github.com/AlMarentu/mobs-go/navigator"
	"github.com/AlMarentu/mobs-go/xmlio"
)

type axle struct {
	core.Record
	Count *core.LeafField[int]
}

func newAxle(parent core.ParentLink, name string) core.Recordish {
	a := &axle{}
	a.Record = *core.NewElemRecord(parent, "Axle")
	a.Count = core.NewLeaf[int](&a.Record, "count")
	return a
}

type truck struct {
	core.Record
	Id    *core.LeafField[int]
	Model *core.LeafField[string]
	Note  *core.LeafField[string]
	Axles *core.RecordVector
}

func newTruck() *truck {
	r := core.NewRecord("Truck")
	tr := &truck{Record: *r}
	tr.Id = core.NewLeaf[int](&tr.Record, "id", core.Flag(core.Key1))
	tr.Model = core.NewLeaf[string](&tr.Record, "model")
	tr.Note = core.NewLeaf[string](&tr.Record, "note", core.Flag(core.InitialNull))
	tr.Axles = core.NewRecordVector(&tr.Record, "axles", "Axle", newAxle)
	return tr
}

// A round trip through Emit then Parse reproduces
// the original record's field values.
func TestEmitParseRoundTrip(t *testing.T) {
	src := newTruck()
	src.Id.Set(1)
	src.Model.Set("F-150")
	src.Axles.Grow(2)
	src.Axles.At(0).(*axle).Count.Set(2)
	src.Axles.At(1).(*axle).Count.Set(4)

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{}))

	dst := newTruck()
	require.NoError(t, jsonio.Parse(&buf, dst, navigator.DefaultPolicy(), jsonio.ParseOptions{}))

	id, _ := dst.Id.Get()
	require.Equal(t, 1, id)
	model, _ := dst.Model.Get()
	require.Equal(t, "F-150", model)
	require.Equal(t, 2, dst.Axles.Len())
	c0, _ := dst.Axles.At(0).(*axle).Count.Get()
	require.Equal(t, 2, c0)
	c1, _ := dst.Axles.At(1).(*axle).Count.Get()
	require.Equal(t, 4, c1)
}

// OmitNull drops a null leaf from the output entirely
// rather than emitting an explicit JSON null.
func TestEmitOmitNullSkipsNullLeaf(t *testing.T) {
	src := newTruck()
	src.Id.Set(2)
	src.Model.Set("Ranger")

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{OmitNull: true}))
	require.NotContains(t, buf.String(), "note")
}

func TestEmitWithoutOmitNullEmitsExplicitNull(t *testing.T) {
	src := newTruck()
	src.Id.Set(3)
	src.Model.Set("Ranger")

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{}))
	require.Contains(t, buf.String(), `"note":null`)
}

func TestParseExplicitNullSetsFieldNull(t *testing.T) {
	dst := newTruck()
	body := `{"id":4,"model":"Explorer","note":null,"axles":[]}`
	require.NoError(t, jsonio.Parse(bytes.NewReader([]byte(body)), dst, navigator.DefaultPolicy(), jsonio.ParseOptions{}))
	require.True(t, dst.Note.IsNull())
}

func TestParseUnknownFieldErrorsByDefault(t *testing.T) {
	dst := newTruck()
	body := `{"id":5,"bogus":true}`
	require.Error(t, jsonio.Parse(bytes.NewReader([]byte(body)), dst, navigator.DefaultPolicy(), jsonio.ParseOptions{}))
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

// An Embedded sub-record's fields serialize flush with its parent's
// own, and a default-policy Parse reads them back onto the same flattened,
// prefixed names.
func TestEmitParseRoundTripThroughEmbeddedSubRecord(t *testing.T) {
	src := newWithEngine()
	src.Label.Set("v8")
	src.Horsepower.Set(420)

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{}))
	require.Contains(t, buf.String(), `"e_hp":420`)
	require.NotContains(t, buf.String(), "engine")

	dst := newWithEngine()
	require.NoError(t, jsonio.Parse(&buf, dst, navigator.DefaultPolicy(), jsonio.ParseOptions{}))
	hp, _ := dst.Horsepower.Get()
	require.Equal(t, 420, hp)
}

func TestEmitIndentProducesMultilineOutput(t *testing.T) {
	src := newTruck()
	src.Id.Set(6)
	src.Model.Set("Bronco")

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{Indent: "  "}))
	require.Contains(t, buf.String(), "\n")
}

// BareKeys writes keys unquoted; Parse accepts that relaxed form alongside
// strict JSON.
func TestBareKeysEmitParseRoundTrip(t *testing.T) {
	src := newTruck()
	src.Id.Set(7)
	src.Model.Set("Transit")

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{BareKeys: true, OmitNull: true}))
	require.Contains(t, buf.String(), "id:7")
	require.NotContains(t, buf.String(), `"id"`)

	dst := newTruck()
	require.NoError(t, jsonio.Parse(&buf, dst, navigator.DefaultPolicy(), jsonio.ParseOptions{}))
	id, _ := dst.Id.Get()
	require.Equal(t, 7, id)
	model, _ := dst.Model.Get()
	require.Equal(t, "Transit", model)
}

type sealedDoc struct {
	core.Record
	Id     *core.LeafField[int]
	Secret *core.LeafField[string]
}

func newSealedDoc() *sealedDoc {
	r := core.NewRecord("SealedDoc")
	d := &sealedDoc{Record: *r}
	d.Id = core.NewLeaf[int](&d.Record, "id", core.Flag(core.Key1))
	d.Secret = core.NewLeaf[string](&d.Record, "secret", core.Flag(core.XmlEncrypt))
	return d
}

// The Encrypt/Decrypt hooks seal a flagged leaf's value into its quoted
// slot, keeping the plaintext off the wire.
func TestEncryptHookRoundTrip(t *testing.T) {
	cs, err := xmlio.NewCipherStream([]byte("passphrase"), []byte("salt"))
	require.NoError(t, err)
	encrypt := func(plain []byte) (string, error) {
		nonce, ct, err := cs.Seal(plain)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ct), nil
	}
	decrypt := func(payload string) ([]byte, error) {
		nonceB64, ctB64, _ := strings.Cut(payload, ":")
		nonce, err := base64.StdEncoding.DecodeString(nonceB64)
		if err != nil {
			return nil, err
		}
		ct, err := base64.StdEncoding.DecodeString(ctB64)
		if err != nil {
			return nil, err
		}
		return cs.Open(nonce, ct)
	}

	src := newSealedDoc()
	src.Id.Set(1)
	src.Secret.Set("top-secret-vin")

	var buf bytes.Buffer
	require.NoError(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{Encrypt: encrypt}))
	require.NotContains(t, buf.String(), "top-secret-vin")

	dst := newSealedDoc()
	require.NoError(t, jsonio.Parse(&buf, dst, navigator.DefaultPolicy(), jsonio.ParseOptions{Decrypt: decrypt}))
	secret, ok := dst.Secret.Get()
	require.True(t, ok)
	require.Equal(t, "top-secret-vin", secret)
}

func TestEncryptFlaggedLeafWithoutHookErrors(t *testing.T) {
	src := newSealedDoc()
	src.Id.Set(2)
	src.Secret.Set("x")
	var buf bytes.Buffer
	require.Error(t, jsonio.Emit(&buf, src, jsonio.EmitOptions{}))
}

func TestParseSyntaxErrorReportsOffset(t *testing.T) {
	dst := newTruck()
	err := jsonio.Parse(bytes.NewReader([]byte(`{"id"  7}`)), dst, navigator.DefaultPolicy(), jsonio.ParseOptions{})
	var serr *jsonio.SyntaxError
	require.ErrorAs(t, err, &serr)
	require.Greater(t, serr.Offset, 0)
}

// ShrinkArrays truncates a vector the document supplies fewer elements
// for; the default policy leaves the extra elements in place.
func TestShrinkArraysTruncatesVector(t *testing.T) {
	dst := newTruck()
	dst.Axles.Grow(3)
	body := `{"id":9,"axles":[{"count":2}]}`

	policy := navigator.DefaultPolicy()
	policy.ShrinkArrays = true
	require.NoError(t, jsonio.Parse(bytes.NewReader([]byte(body)), dst, policy, jsonio.ParseOptions{}))
	require.Equal(t, 1, dst.Axles.Len())

	kept := newTruck()
	kept.Axles.Grow(3)
	require.NoError(t, jsonio.Parse(bytes.NewReader([]byte(body)), kept, navigator.DefaultPolicy(), jsonio.ParseOptions{}))
	require.Equal(t, 3, kept.Axles.Len())
}
