package xmlio

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/AlMarentu/mobs-go/core"
	"github.com/AlMarentu/mobs-go/navigator"
)

// SyntaxError reports the byte offset at which XML parsing failed.
type SyntaxError struct {
	Offset int64
	Err    error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("xmlio: offset %d: %v", e.Offset, e.Err) }
func (e *SyntaxError) Unwrap() error { return e.Err }

// FieldErrors aggregates per-field coercion failures, so one document can
// report every bad value rather than only the first. Structural problems
// (malformed XML, unknown fields under a strict policy) stay fatal and
// surface as SyntaxError instead.
type FieldErrors struct {
	Fields []string
}

func (e *FieldErrors) Error() string {
	return "xmlio: invalid field values: " + strings.Join(e.Fields, "; ")
}

// ParseOptions mirrors the knobs Emit takes that also matter on the read
// side: the cipher needed to reverse XmlEncrypt, and tolerance for legacy
// 8-bit charsets.
type ParseOptions struct {
	// Cipher is required to decode any EncryptedData sub-element.
	Cipher *CipherStream
	// Charset re-decodes a document declared in an 8-bit charset instead of
	// erroring on non-UTF-8 input, for legacy exports that predate UTF-8.
	// Recognized values (case-insensitive): "iso-8859-1"/"latin1"/
	// "windows-1252", "iso-8859-9"/"latin5", and "iso-8859-15"/"latin9".
	// Empty leaves the decoder's own UTF-8/declared-encoding handling
	// untouched.
	Charset string
}

// Parse reads an XML document into root via a navigator.Navigator, the
// inverse of Emit: repeated same-named sibling elements become vector
// indices, attributes map back onto XmlAsAttr leaves, and an
// EncryptedData/CipherData/CipherValue element is decrypted back into its
// plain leaf value.
func Parse(r io.Reader, root core.Recordish, policy navigator.Policy, opts ParseOptions) error {
	dec := xml.NewDecoder(r)
	if opts.Charset != "" {
		dec.CharsetReader = charsetReaderFor(opts.Charset)
	}
	nav := navigator.New(root, policy)
	p := &parser{dec: dec, opts: opts}
	if err := p.run(nav); err != nil {
		return &SyntaxError{Offset: dec.InputOffset(), Err: err}
	}
	if len(p.fieldErrs) > 0 {
		return &FieldErrors{Fields: p.fieldErrs}
	}
	return nil
}

type parser struct {
	dec       *xml.Decoder
	opts      ParseOptions
	fieldErrs []string
}

// coercionErr records a bad field value and lets the parse continue, so a
// single document reports every offending field.
func (p *parser) coercionErr(name string, err error) {
	p.fieldErrs = append(p.fieldErrs, fmt.Sprintf("%s: %v", name, err))
}

// run consumes leading ProcessingInstruction/whitespace tokens, then the
// single root element, assigning it onto nav's root frame.
func (p *parser) run(nav *navigator.Navigator) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return p.element(nav, t)
		case xml.ProcInst, xml.Comment, xml.Directive:
			continue
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("unexpected character data before root element")
			}
		default:
			continue
		}
	}
}

// element consumes everything between se and its matching EndElement,
// assigning attributes and the appropriate body shape (leaf text, record
// fields, or nothing for a self-closing null) onto the current frame of
// nav, which must already be positioned on the frame se corresponds to.
func (p *parser) element(nav *navigator.Navigator, se xml.StartElement) error {
	if err := p.assignAttrs(nav, se); err != nil {
		return err
	}
	if _, ok := nav.CurrentRecord(); ok {
		return p.recordBody(nav, se.Name.Local)
	}
	if _, ok := nav.CurrentLeaf(); ok {
		return p.leafBody(nav, se.Name.Local)
	}
	// dummy frame (unknown field): drain and discard.
	return p.skipBody(se.Name.Local)
}

// assignAttrs maps se's attributes onto the current record's matching
// leaf children (rendered as XmlAsAttr on the way out).
func (p *parser) assignAttrs(nav *navigator.Navigator, se xml.StartElement) error {
	if _, ok := nav.CurrentRecord(); !ok {
		return nil
	}
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if err := nav.Enter(a.Name.Local); err != nil {
			continue // attribute doesn't map to a declared field; ignore
		}
		if err := nav.SetStr(a.Value); err != nil {
			p.coercionErr(a.Name.Local, err)
		}
		if err := nav.Leave(); err != nil {
			return err
		}
	}
	return nil
}

// recordBody reads the children of a record element, assigning every
// occurrence of the same child name, adjacent or not, to successive vector
// indices.
func (p *parser) recordBody(nav *navigator.Navigator, selfName string) error {
	counts := map[string]int{}
	sawContent := false
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawContent = true
			if err := p.enterChild(nav, t, counts); err != nil {
				return err
			}
		case xml.EndElement:
			if !sawContent {
				return nav.SetNull() // an empty/self-closing record element is null
			}
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				sawContent = true
			}
		}
	}
}

// enterChild descends nav into the field named by t, resolving to a plain
// child or, for a repeated-name run, the next vector index, then recurses
// into that element's own body before leaving back to the parent record.
func (p *parser) enterChild(nav *navigator.Navigator, t xml.StartElement, counts map[string]int) error {
	name := t.Name.Local
	if err := nav.Enter(name); err != nil {
		// Enter only errors when the field is genuinely unknown and
		// Policy.AllowUnknown is false; under AllowUnknown it instead
		// pushes a dummy frame, so this is always a hard failure.
		return err
	}
	if _, ok := nav.CurrentVector(); ok {
		idx := counts[name]
		counts[name]++
		if err := nav.EnterIndex(idx); err != nil {
			nav.Leave()
			return err
		}
		if err := p.element(nav, t); err != nil {
			return err
		}
		if err := nav.Leave(); err != nil { // leave the element frame
			return err
		}
		return nav.Leave() // leave the vector frame
	}
	if err := p.element(nav, t); err != nil {
		return err
	}
	return nav.Leave()
}

// leafBody reads a scalar element's body. It detects an EncryptedData
// wrapper from the input itself (the reader keys off the element's declared
// xmlenc Type, not the leaf's own XmlEncrypt flag, so a document can be
// decrypted even against a schema that no longer marks the field), and
// otherwise reads plain text, treating an empty body as an explicit null to
// mirror Emit.
func (p *parser) leafBody(nav *navigator.Navigator, selfName string) error {
	first, err := p.dec.Token()
	if err != nil {
		return err
	}
	if se, ok := first.(xml.StartElement); ok && se.Name.Local == "EncryptedData" {
		return p.encryptedLeafBody(nav, selfName, se)
	}
	return p.scalarLeafBody(nav, selfName, first)
}

func (p *parser) scalarLeafBody(nav *navigator.Navigator, selfName string, first xml.Token) error {
	var buf bytes.Buffer
	tok := first
	for {
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			s := buf.String()
			if s == "" {
				return nav.SetNull()
			}
			// A blob leaf's FromStr decodes base64 itself, so element text
			// assigns uniformly across leaf kinds.
			if err := nav.SetStr(s); err != nil {
				p.coercionErr(selfName, err)
			}
			return nil
		case xml.StartElement:
			return fmt.Errorf("xmlio: unexpected nested element %q inside scalar %q", t.Name.Local, selfName)
		}
		var err error
		tok, err = p.dec.Token()
		if err != nil {
			return err
		}
	}
}

// encryptedLeafBody consumes the EncryptedData/KeyInfo/CipherData/
// CipherValue sub-automaton Emit produces for an XmlEncrypt leaf,
// validating the Type attribute that names it as element encryption,
// skipping over KeyInfo structurally, and restoring the plain value by
// reversing CipherStream.Seal on CipherValue's text.
func (p *parser) encryptedLeafBody(nav *navigator.Navigator, selfName string, start xml.StartElement) error {
	if p.opts.Cipher == nil {
		return fmt.Errorf("xmlio: field %q is encrypted but no Cipher was configured", selfName)
	}
	if t := attrValue(start, "Type"); t != "" && t != EncryptedDataType {
		return fmt.Errorf("xmlio: field %q: unsupported EncryptedData Type %q", selfName, t)
	}
	var payload string
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "CipherData" {
				payload, err = p.cipherData(t.Name.Local)
				if err != nil {
					return err
				}
				continue
			}
			if err := p.skipBody(t.Name.Local); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				plain, err := p.decrypt(payload)
				if err != nil {
					return err
				}
				if plain == "" {
					return nav.SetNull()
				}
				return nav.SetStr(plain)
			}
		}
	}
}

// cipherData reads a CipherData element's body, returning CipherValue's
// text and skipping anything else nested inside it.
func (p *parser) cipherData(selfName string) (string, error) {
	var payload string
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "CipherValue" {
				s, err := p.textContent(t.Name.Local)
				if err != nil {
					return "", err
				}
				payload = s
				continue
			}
			if err := p.skipBody(t.Name.Local); err != nil {
				return "", err
			}
		case xml.EndElement:
			if t.Name.Local == selfName {
				return payload, nil
			}
		}
	}
}

// textContent reads the character data of a leaf element down to its
// matching EndElement.
func (p *parser) textContent(selfName string) (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == selfName {
				return buf.String(), nil
			}
		}
	}
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (p *parser) decrypt(payload string) (string, error) {
	i := bytes.IndexByte([]byte(payload), ':')
	if i < 0 {
		return "", fmt.Errorf("xmlio: malformed CipherValue payload")
	}
	nonce, err := base64.StdEncoding.DecodeString(payload[:i])
	if err != nil {
		return "", fmt.Errorf("xmlio: decoding nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(payload[i+1:])
	if err != nil {
		return "", fmt.Errorf("xmlio: decoding ciphertext: %w", err)
	}
	plain, err := p.opts.Cipher.Open(nonce, ct)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// skipBody discards the subtree of an element the schema doesn't
// recognize, tolerating unknown fields the way Policy.AllowUnknown does
// for navigator-level dummy frames.
func (p *parser) skipBody(name string) error {
	depth := 0
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

// charsetReaderFor returns an xml.CharsetReader that reinterprets the
// document's bytes as the named 8-bit charset, whichever non-UTF-8 encoding
// the XML declaration names. encoding/xml consults it only when the
// declaration names such an encoding; a document declared UTF-8, or with no
// declaration, is decoded as UTF-8 without it. ISO-8859-1 decodes as a straight byte-to-rune
// identity mapping; ISO-8859-9 and ISO-8859-15 apply their few code-point
// differences from that baseline.
func charsetReaderFor(charset string) func(string, io.Reader) (io.Reader, error) {
	overrides := iso8859Overrides(charset)
	return func(_ string, input io.Reader) (io.Reader, error) {
		raw, err := io.ReadAll(input)
		if err != nil {
			return nil, err
		}
		var out bytes.Buffer
		out.Grow(len(raw) * 2)
		for _, b := range raw {
			r := rune(b)
			if mapped, ok := overrides[b]; ok {
				r = mapped
			}
			out.WriteRune(r)
		}
		return &out, nil
	}
}

// iso8859Overrides returns the byte→rune exceptions for the named charset,
// relative to the ISO-8859-1/identity baseline. An unrecognized name (and
// ISO-8859-1 itself) yields a nil table, i.e. plain identity decoding.
func iso8859Overrides(charset string) map[byte]rune {
	switch normalizeCharset(charset) {
	case "iso-8859-9":
		return iso8859_9Overrides
	case "iso-8859-15":
		return iso8859_15Overrides
	default:
		return nil
	}
}

func normalizeCharset(charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "latin5", "iso-8859-9", "iso8859-9":
		return "iso-8859-9"
	case "latin9", "iso-8859-15", "iso8859-15":
		return "iso-8859-15"
	case "latin1", "windows-1252", "cp1252", "iso-8859-1", "iso8859-1":
		return "iso-8859-1"
	default:
		return ""
	}
}

// iso8859_9Overrides: ISO-8859-9 (Turkish) differs from ISO-8859-1 at six
// code points, all in the 0xD0-0xFE range.
var iso8859_9Overrides = map[byte]rune{
	0xD0: 'Ğ',
	0xDD: 'İ',
	0xDE: 'Ş',
	0xF0: 'ğ',
	0xFD: 'ı',
	0xFE: 'ş',
}

// iso8859_15Overrides: ISO-8859-15 (Latin-9) differs from ISO-8859-1 at
// eight code points, most notably the Euro sign at 0xA4.
var iso8859_15Overrides = map[byte]rune{
	0xA4: '€',
	0xA6: 'Š',
	0xA8: 'š',
	0xB4: 'Ž',
	0xB8: 'ž',
	0xBC: 'Œ',
	0xBD: 'œ',
	0xBE: 'Ÿ',
}
