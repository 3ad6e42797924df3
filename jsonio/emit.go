// Package jsonio implements the JSON emitter and streaming parser:
// emission is driven by core.Traverse over the read-only visitor protocol,
// and parsing by a hand-rolled streaming scanner feeding a
// navigator.Navigator cursor, so relaxed input (bare object keys, bare
// value tokens) parses the same way strict JSON does.
package jsonio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/AlMarentu/mobs-go/convert"
	"github.com/AlMarentu/mobs-go/core"
)

// EmitOptions controls name resolution and output shape.
type EmitOptions struct {
	Names        core.NameHint
	Indent       string // non-empty enables pretty-printing with this indent unit
	OmitNull     bool   // skip null leaves/vectors/sub-records entirely
	ModifiedOnly bool   // emit only the modified subtree
	WithVersion  bool   // include DbVersionField leaves
	// BareKeys writes object keys without quotes when they fit the bare
	// token alphabet [A-Za-z0-9_+\-.]+; Parse accepts either form.
	BareKeys bool
	// Encrypt transforms an XmlEncrypt-flagged leaf's text into the quoted
	// ciphertext written in its place. Required if such a leaf is
	// reachable and non-null.
	Encrypt func(plain []byte) (string, error)
}

// Emit writes r as JSON to w.
func Emit(w io.Writer, r core.Recordish, opts EmitOptions) error {
	bw := bufio.NewWriter(w)
	e := &emitter{w: bw, opts: opts}
	if err := core.Traverse(r, core.TravOptions{
		Names:        opts.Names,
		WithVersion:  opts.WithVersion,
		ModifiedOnly: opts.ModifiedOnly,
	}, e); err != nil {
		return err
	}
	return bw.Flush()
}

// containerFrame tracks comma bookkeeping for one open '{' or '['.
// nullSkip marks a frame pushed for a null container, whose DoXxxEnd must
// not emit a closing bracket (none was opened).
type containerFrame struct {
	first    bool
	nullSkip bool
	omitted  bool
}

type emitter struct {
	w      *bufio.Writer
	opts   EmitOptions
	frames []containerFrame
	depth  int
}

func (e *emitter) indent() {
	if e.opts.Indent == "" {
		return
	}
	e.w.WriteByte('\n')
	for i := 0; i < e.depth; i++ {
		e.w.WriteString(e.opts.Indent)
	}
}

// beforeValue emits the comma separator for a value about to be written
// inside the current container, if any is open; the caller indents,
// either through writeKey or directly for an array element.
func (e *emitter) beforeValue() {
	if len(e.frames) == 0 {
		return
	}
	f := &e.frames[len(e.frames)-1]
	if !f.first {
		e.w.WriteByte(',')
	}
	f.first = false
}

func (e *emitter) writeKey(name string) {
	e.indent()
	if e.opts.BareKeys && isBareName(name) {
		e.w.WriteString(name)
	} else {
		e.writeJSONString(name)
	}
	e.w.WriteByte(':')
	if e.opts.Indent != "" {
		e.w.WriteByte(' ')
	}
}

func isBareName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isBareChar(name[i]) {
			return false
		}
	}
	return true
}

func (e *emitter) writeJSONString(s string) {
	b, _ := json.Marshal(s)
	e.w.Write(b)
}

func (e *emitter) DoObjBeg(r core.Recordish, cur core.TravCursor) error {
	if r.IsNull() && e.opts.OmitNull {
		e.frames = append(e.frames, containerFrame{omitted: true})
		return nil
	}
	isRoot := len(e.frames) == 0
	e.beforeValue()
	if !isRoot && !cur.InArray {
		e.writeKey(r.GetName(e.opts.Names))
	} else if cur.InArray {
		e.indent()
	}
	if r.IsNull() {
		e.w.WriteString("null")
		e.frames = append(e.frames, containerFrame{nullSkip: true})
		return nil
	}
	e.w.WriteByte('{')
	e.depth++
	e.frames = append(e.frames, containerFrame{first: true})
	return nil
}

func (e *emitter) DoObjEnd(r core.Recordish, cur core.TravCursor) error {
	f := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	if f.nullSkip || f.omitted {
		return nil
	}
	e.depth--
	e.indent()
	e.w.WriteByte('}')
	return nil
}

func (e *emitter) DoArrayBeg(v core.VectorNode, cur core.TravCursor) error {
	if v.IsNull() && e.opts.OmitNull {
		e.frames = append(e.frames, containerFrame{omitted: true})
		return nil
	}
	e.beforeValue()
	// A vector is always a named member of its record; the InArray flag on
	// this cursor describes the vector itself, not an enclosing array.
	e.writeKey(v.GetName(e.opts.Names))
	if v.IsNull() {
		e.w.WriteString("null")
		e.frames = append(e.frames, containerFrame{nullSkip: true})
		return nil
	}
	e.w.WriteByte('[')
	e.depth++
	e.frames = append(e.frames, containerFrame{first: true})
	return nil
}

func (e *emitter) DoArrayEnd(v core.VectorNode, cur core.TravCursor) error {
	f := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	if f.nullSkip || f.omitted {
		return nil
	}
	e.depth--
	e.indent()
	e.w.WriteByte(']')
	return nil
}

func (e *emitter) DoMem(l core.Leaf, cur core.TravCursor) error {
	if l.IsNull() && e.opts.OmitNull {
		return nil
	}
	e.beforeValue()
	if !cur.InArray {
		e.writeKey(l.GetName(e.opts.Names))
	} else {
		e.indent()
	}
	if l.IsNull() {
		e.w.WriteString("null")
		return nil
	}
	s, _ := l.ToStr(convert.ToStrHint{})
	if core.HasFlag(l, core.XmlEncrypt) {
		if e.opts.Encrypt == nil {
			return fmt.Errorf("jsonio: field %q is marked XmlEncrypt but no Encrypt hook was configured", l.Name())
		}
		enc, err := e.opts.Encrypt([]byte(s))
		if err != nil {
			return err
		}
		e.writeJSONString(enc)
		return nil
	}
	if l.IsCharType() {
		e.writeJSONString(s)
	} else {
		e.w.WriteString(s)
	}
	return nil
}
