package core

import "strings"

// parentLink is implemented by anything that can own schema-bearing
// children: a Record (owns leaves/sub-records/vectors) or a vector (owns
// elements). It lets a mutated descendant climb the ancestor chain,
// marking every ancestor non-null and modified, and lets name resolution
// walk upward through embedded ancestors.
type parentLink interface {
	activateFromChild()
	ancestorInfo() ancestorInfo
}

// ParentLink is parentLink's exported name, referenced by generated
// RecordVector element factories declared outside package core (those
// factories receive a value of this type from NewRecordVector's growth
// machinery; they forward it to NewElemRecord rather than implement it).
type ParentLink = parentLink

// ancestorInfo is the information a parent exposes to a child performing
// the "am I inside an embedded chain" walk used by getName.
type ancestorInfo struct {
	embedded  bool
	prefix    string
	hasPrefix bool
	parent    parentLink
}

// base is embedded by every schema-bearing node (Record, LeafField,
// vector) and carries the null/modified state, the declared flags, and
// the range-coded token table.
type base struct {
	name     string
	parent   parentLink
	isNull   bool
	modified bool
	flags    []SchemaFlag
	tokens   configTokens
}

// Name returns the field's declared (original) name.
func (b *base) Name() string { return b.name }

// IsNull reports the null flag.
func (b *base) IsNull() bool { return b.isNull }

// Modified reports the modified flag.
func (b *base) Modified() bool { return b.modified }

// ClearModified clears the modified flag on this node only.
func (b *base) ClearModified() { b.modified = false }

// activate marks this node non-null and modified, then climbs to the
// parent so the whole ancestor chain is marked too.
func (b *base) activate() {
	b.isNull = false
	b.modified = true
	if b.parent != nil {
		b.parent.activateFromChild()
	}
}

// markNull marks the node null, then marks modified and climbs. It holds no
// value of its own: callers (LeafField.SetNull, the vectors' setNullVec,
// Record.setNull) clear the value before calling it.
func (b *base) markNull() {
	b.isNull = true
	b.modified = true
	if b.parent != nil {
		b.parent.activateFromChild()
	}
}

func (b *base) configure(f SchemaFlag) { b.flags = append(b.flags, f) }

// hasFeature resolves category to the specific flag value actually set, or
// Unset. Pass one of the exported category sentinels (AltName, ColName,
// Prefix, MaxLength) or the package-internal anyKey to resolve a range, or
// a plain flag to test for its exact presence.
func (b *base) hasFeature(category SchemaFlag) SchemaFlag {
	switch category {
	case AltName, ColName, Prefix:
		for _, fl := range b.flags {
			if base, ok := fl.band(); ok && base == category {
				return fl
			}
		}
		return Unset
	case MaxLength:
		for _, fl := range b.flags {
			if _, ok := lengthValue(fl); ok {
				return fl
			}
		}
		return Unset
	case anyKey:
		for _, fl := range b.flags {
			if keyPosition(fl) > 0 {
				return fl
			}
		}
		return Unset
	default:
		for _, fl := range b.flags {
			if fl == category {
				return fl
			}
		}
		return Unset
	}
}

// getConf returns the string payload of a resolved range-coded flag.
func (b *base) getConf(resolved SchemaFlag) (string, bool) {
	return b.tokens.lookup(resolved)
}

// Category sentinels passed to hasFeature to resolve a range-coded band.
const (
	AltName   SchemaFlag = altNameBase
	ColName   SchemaFlag = colNameBase
	Prefix    SchemaFlag = prefixBase
	MaxLength SchemaFlag = lengthBase
	anyKey    SchemaFlag = -1
)

// NameHint controls getName's output-name resolution.
type NameHint struct {
	UseAltNames bool
	UsePrefix   bool
	ToLowercase bool
}

// getName resolves the serialized name of a schema-bearing node: embedded
// ancestors contribute their Prefix tokens outer-to-inner, then either the
// original name or the resolved AltName token is appended, optionally
// lowercased.
func getName(n *base, hint NameHint) string {
	name := n.name
	if hint.UseAltNames {
		if f := n.hasFeature(AltName); f != Unset {
			if tok, ok := n.getConf(f); ok {
				name = tok
			}
		}
	}

	var prefix string
	if n.parent != nil {
		info := n.parent.ancestorInfo()
		if info.embedded {
			var chain []string
			cur := info
			for {
				if cur.hasPrefix {
					chain = append(chain, cur.prefix)
				}
				if cur.parent == nil {
					break
				}
				next := cur.parent.ancestorInfo()
				if !next.embedded {
					break
				}
				cur = next
			}
			for i := len(chain) - 1; i >= 0; i-- {
				prefix += chain[i]
			}
		} else if hint.UsePrefix && info.hasPrefix {
			prefix = info.prefix
		}
	}

	out := prefix + name
	if hint.ToLowercase {
		out = strings.ToLower(out)
	}
	return out
}
