// Package xmlio implements the XML emitter and streaming reader:
// XmlAsAttr leaves render as attributes on their parent's opening tag,
// blobs render as base64 element text, null vectors are skipped entirely,
// and a field marked XmlEncrypt renders through a nested streaming
// EncryptedData/CipherData/CipherValue sub-automaton instead of plain text.
package xmlio

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/AlMarentu/mobs-go/convert"
	"github.com/AlMarentu/mobs-go/core"
)

// EmitOptions controls name resolution, output shape, and the cipher used
// for XmlEncrypt-flagged leaves.
type EmitOptions struct {
	Names    core.NameHint
	Indent   string
	OmitNull bool
	// ModifiedOnly restricts emission to the modified subtree.
	ModifiedOnly bool
	WithVersion  bool
	// RootName overrides the root element's tag; if empty, the root
	// record's TypeName() is used when it declares OTypeAsXRoot, else
	// "root".
	RootName string
	// Cipher is required if any XmlEncrypt-flagged leaf is reachable.
	Cipher *CipherStream
}

// Emit writes r as XML to w.
func Emit(w io.Writer, r core.Recordish, opts EmitOptions) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
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

type emitter struct {
	w      *bufio.Writer
	opts   EmitOptions
	depth  int
	tags   []string // open tag names, one per nesting level (matches DoObjEnd)
	attrOf map[core.Leaf]bool
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

func escapeText(s string) string {
	var b []byte
	xml.EscapeText(writerFunc(func(p []byte) (int, error) {
		b = append(b, p...)
		return len(p), nil
	}), []byte(s))
	return string(b)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// tagName resolves the tag a record opens under: the root honors
// EmitOptions.RootName and the OTypeAsXRoot fallback, every other level
// resolves from the node itself, except inside a vector where every
// element is a repeated sibling sharing the vector's own name rather than
// each record's individually declared or type name.
func (e *emitter) tagName(r core.Recordish, cur core.TravCursor) string {
	if cur.InArray {
		return cur.ArrayName
	}
	if e.depth == 0 && len(e.tags) == 0 {
		if e.opts.RootName != "" {
			return e.opts.RootName
		}
		if core.HasFlag(r, core.OTypeAsXRoot) {
			return r.TypeName()
		}
		return "root"
	}
	return r.GetName(e.opts.Names)
}

func (e *emitter) DoObjBeg(r core.Recordish, cur core.TravCursor) error {
	name := e.tagName(r, cur)
	e.tags = append(e.tags, name)
	if r.IsNull() {
		if e.opts.OmitNull {
			return nil
		}
		e.indent()
		fmt.Fprintf(e.w, "<%s/>", name)
		return nil
	}
	e.indent()
	attrs := attrLeaves(r)
	e.w.WriteByte('<')
	e.w.WriteString(name)
	for _, a := range attrs {
		s, ok := a.ToStr(convert.ToStrHint{})
		if !ok {
			continue
		}
		fmt.Fprintf(e.w, ` %s="%s"`, a.GetName(e.opts.Names), escapeText(s))
	}
	e.w.WriteByte('>')
	e.depth++
	if e.attrOf == nil {
		e.attrOf = map[core.Leaf]bool{}
	}
	for _, a := range attrs {
		e.attrOf[a] = true
	}
	return nil
}

func (e *emitter) DoObjEnd(r core.Recordish, cur core.TravCursor) error {
	name := e.tags[len(e.tags)-1]
	e.tags = e.tags[:len(e.tags)-1]
	if r.IsNull() {
		return nil
	}
	e.depth--
	e.indent()
	fmt.Fprintf(e.w, "</%s>", name)
	return nil
}

func (e *emitter) DoArrayBeg(v core.VectorNode, cur core.TravCursor) error {
	if v.IsNull() {
		// A null vector contributes no element at all, not an empty or
		// self-closing tag.
		return nil
	}
	return nil
}

func (e *emitter) DoArrayEnd(v core.VectorNode, cur core.TravCursor) error {
	return nil
}

func (e *emitter) DoMem(l core.Leaf, cur core.TravCursor) error {
	if e.attrOf[l] {
		return nil // already emitted as an attribute of the enclosing tag
	}
	if l.IsNull() && e.opts.OmitNull {
		return nil
	}
	var name string
	if cur.InArray {
		name = cur.ArrayName
	} else {
		name = l.GetName(e.opts.Names)
	}
	e.indent()
	if l.IsNull() {
		fmt.Fprintf(e.w, "<%s/>", name)
		return nil
	}
	if core.HasFlag(l, core.XmlEncrypt) {
		return e.emitEncrypted(name, l)
	}
	// A blob leaf's ToStr is already its base64 form, so every leaf kind
	// writes as plain element text here.
	s, _ := l.ToStr(convert.ToStrHint{})
	fmt.Fprintf(e.w, "<%s>%s</%s>", name, escapeText(s), name)
	return nil
}

func (e *emitter) emitEncrypted(name string, l core.Leaf) error {
	if e.opts.Cipher == nil {
		return fmt.Errorf("xmlio: field %q is marked XmlEncrypt but no Cipher was configured", name)
	}
	s, _ := l.ToStr(convert.ToStrHint{})
	nonce, ct, err := e.opts.Cipher.Seal([]byte(s))
	if err != nil {
		return err
	}
	payload := base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ct)
	fmt.Fprintf(e.w, "<%s><EncryptedData Type=%q><KeyInfo><KeyName>%s</KeyName></KeyInfo><CipherData><CipherValue>%s</CipherValue></CipherData></EncryptedData></%s>",
		name, EncryptedDataType, cipherKeyName, payload, name)
	return nil
}

// attrLeaves collects the leaves rendered on the opening tag. An
// XmlEncrypt-flagged leaf never qualifies, whatever else it declares: an
// attribute is always plaintext, so encryption pending forces the element
// path through emitEncrypted.
func attrLeaves(r core.Recordish) []core.Leaf {
	var out []core.Leaf
	for _, c := range core.Children(r) {
		if c.Kind != core.ChildLeaf || !core.HasFlag(c.Leaf, core.XmlAsAttr) {
			continue
		}
		if core.HasFlag(c.Leaf, core.XmlEncrypt) {
			continue
		}
		out = append(out, c.Leaf)
	}
	return out
}
