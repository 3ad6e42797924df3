package jsonio

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/AlMarentu/mobs-go/core"
	"github.com/AlMarentu/mobs-go/navigator"
)

// SyntaxError reports a structural problem together with the byte offset
// in the input buffer at which scanning stopped.
type SyntaxError struct {
	Offset int
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("jsonio: syntax error at offset %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// ParseOptions carries the read-side knobs that are not navigator policy.
type ParseOptions struct {
	// Decrypt reverses the Encrypt hook Emit applies to an XmlEncrypt
	// leaf's value: a quoted value arriving at such a leaf is passed
	// through it before assignment. Leaving it nil assigns the raw text.
	Decrypt func(ciphertext string) ([]byte, error)
}

// Parse reads a single JSON value from r and assigns it into root via a
// navigator.Navigator, matching root's declared shape against the object's
// member names. The accepted grammar is JSON with two relaxations: object
// keys and scalar values may be bare tokens drawn from [A-Za-z0-9_+\-.]+
// alongside standard quoted strings, and whitespace is space, tab, CR, LF.
func Parse(r io.Reader, root core.Recordish, policy navigator.Policy, opts ParseOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s := &scanner{data: data}
	nav := navigator.New(root, policy)
	if err := parseValue(s, nav, opts); err != nil {
		return &SyntaxError{Offset: s.pos, Err: err}
	}
	s.skipWS()
	if s.pos != len(s.data) {
		return &SyntaxError{Offset: s.pos, Err: fmt.Errorf("trailing data after document")}
	}
	return nil
}

type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) skipWS() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) peek() (byte, bool) {
	if s.pos < len(s.data) {
		return s.data[s.pos], true
	}
	return 0, false
}

func isBareChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '+', c == '-', c == '.':
		return true
	}
	return false
}

// readBare consumes a run of bare-token characters.
func (s *scanner) readBare() (string, error) {
	start := s.pos
	for s.pos < len(s.data) && isBareChar(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		if c, ok := s.peek(); ok {
			return "", fmt.Errorf("unexpected character %q", c)
		}
		return "", fmt.Errorf("unexpected end of input")
	}
	return string(s.data[start:s.pos]), nil
}

// readString consumes a double-quoted string with backslash escapes; the
// opening quote is at the current position.
func (s *scanner) readString() (string, error) {
	s.pos++ // opening quote
	var b []byte
	for {
		if s.pos >= len(s.data) {
			return "", fmt.Errorf("unterminated string")
		}
		c := s.data[s.pos]
		switch c {
		case '"':
			s.pos++
			return string(b), nil
		case '\\':
			s.pos++
			if s.pos >= len(s.data) {
				return "", fmt.Errorf("unterminated escape")
			}
			esc := s.data[s.pos]
			s.pos++
			switch esc {
			case '"', '\\', '/':
				b = append(b, esc)
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'u':
				r, err := s.readHexRune()
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(r) {
					if s.pos+1 < len(s.data) && s.data[s.pos] == '\\' && s.data[s.pos+1] == 'u' {
						s.pos += 2
						r2, err := s.readHexRune()
						if err != nil {
							return "", err
						}
						r = utf16.DecodeRune(r, r2)
					} else {
						r = utf8.RuneError
					}
				}
				b = utf8.AppendRune(b, r)
			default:
				return "", fmt.Errorf("invalid escape \\%c", esc)
			}
		default:
			b = append(b, c)
			s.pos++
		}
	}
}

func (s *scanner) readHexRune() (rune, error) {
	if s.pos+4 > len(s.data) {
		return 0, fmt.Errorf("truncated \\u escape")
	}
	n, err := strconv.ParseUint(string(s.data[s.pos:s.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape: %w", err)
	}
	s.pos += 4
	return rune(n), nil
}

// parseValue consumes exactly one value (object, array, or scalar) at the
// navigator's current frame.
func parseValue(s *scanner, nav *navigator.Navigator, opts ParseOptions) error {
	s.skipWS()
	c, ok := s.peek()
	if !ok {
		return fmt.Errorf("unexpected end of input")
	}
	switch c {
	case '{':
		s.pos++
		return parseObject(s, nav, opts)
	case '[':
		s.pos++
		return parseArray(s, nav, opts)
	case '"':
		str, err := s.readString()
		if err != nil {
			return err
		}
		return assignQuoted(nav, str, opts)
	default:
		tok, err := s.readBare()
		if err != nil {
			return err
		}
		return assignBare(nav, tok)
	}
}

// assignQuoted writes a quoted value into the current leaf, reversing the
// emit-side encryption first when the leaf calls for it.
func assignQuoted(nav *navigator.Navigator, str string, opts ParseOptions) error {
	if leaf, ok := nav.CurrentLeaf(); ok && opts.Decrypt != nil && core.HasFlag(leaf, core.XmlEncrypt) {
		plain, err := opts.Decrypt(str)
		if err != nil {
			return err
		}
		return nav.SetStr(string(plain))
	}
	return nav.SetStr(str)
}

// assignBare coerces an unquoted token: the literals null/true/false, then
// integer, then float, and any other bare word as plain text.
func assignBare(nav *navigator.Navigator, tok string) error {
	switch tok {
	case "null":
		return nav.SetNull()
	case "true":
		return nav.SetInt(1)
	case "false":
		return nav.SetInt(0)
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return nav.SetInt(i)
	}
	if u, err := strconv.ParseUint(tok, 10, 64); err == nil {
		return nav.SetUint(u)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return nav.SetFloat(f)
	}
	return nav.SetStr(tok)
}

// parseObject consumes the members of an object whose '{' has already been
// read, entering and leaving one navigator frame per member.
func parseObject(s *scanner, nav *navigator.Navigator, opts ParseOptions) error {
	s.skipWS()
	if c, ok := s.peek(); ok && c == '}' {
		s.pos++
		return nil
	}
	for {
		s.skipWS()
		c, ok := s.peek()
		if !ok {
			return fmt.Errorf("unterminated object")
		}
		var key string
		var err error
		if c == '"' {
			key, err = s.readString()
		} else {
			key, err = s.readBare()
		}
		if err != nil {
			return err
		}
		s.skipWS()
		if c, ok := s.peek(); !ok || c != ':' {
			return fmt.Errorf("expected ':' after key %q", key)
		}
		s.pos++
		if err := nav.Enter(key); err != nil {
			return err
		}
		if err := parseValue(s, nav, opts); err != nil {
			return err
		}
		if err := nav.Leave(); err != nil {
			return err
		}
		s.skipWS()
		switch c, ok := s.peek(); {
		case !ok:
			return fmt.Errorf("unterminated object")
		case c == ',':
			s.pos++
		case c == '}':
			s.pos++
			return nil
		default:
			return fmt.Errorf("expected ',' or '}' in object, got %q", c)
		}
	}
}

// parseArray consumes the elements of an array whose '[' has already been
// read. Vector elements beyond the last parsed index are left untouched
// unless Policy.ShrinkArrays asks for truncation at the close.
func parseArray(s *scanner, nav *navigator.Navigator, opts ParseOptions) error {
	s.skipWS()
	if c, ok := s.peek(); ok && c == ']' {
		s.pos++
		return nav.Truncate(0)
	}
	for i := 0; ; i++ {
		if err := nav.EnterIndex(i); err != nil {
			return err
		}
		if err := parseValue(s, nav, opts); err != nil {
			return err
		}
		if err := nav.Leave(); err != nil {
			return err
		}
		s.skipWS()
		switch c, ok := s.peek(); {
		case !ok:
			return fmt.Errorf("unterminated array")
		case c == ',':
			s.pos++
		case c == ']':
			s.pos++
			return nav.Truncate(i + 1)
		default:
			return fmt.Errorf("expected ',' or ']' in array, got %q", c)
		}
	}
}
