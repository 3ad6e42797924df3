package core

// SchemaFlag is a single declaration option attached to a record, leaf, or
// vector. A handful of flags (AltName, ColName, Prefix, and length limits)
// are "range-coded": the flag value itself encodes an index into a
// ConfigToken table (for string payloads) or a clipped integer (for
// MaxLength), rather than naming one of a fixed set of constants.
type SchemaFlag int

// Plain (non-range) flags. Zero is Unset so a zero-valued SchemaFlag
// field is always "no flag".
const (
	Unset SchemaFlag = iota
	InitialNull
	VectorNull
	XmlAsAttr
	Embedded
	DbCompact
	DbDetail
	DbAuditTrail
	DbJson
	OTypeAsXRoot
	XmlEncrypt
	DbVersionField
	Key1
	Key2
	Key3
	Key4
	Key5

	plainFlagCount
)

// Range bases for token-backed flags. Each base marks the start of a band
// reserved for that flag kind; the offset within the band is an index into
// the owning record's ConfigToken table (see configtoken.go).
const (
	altNameBase SchemaFlag = 10_000 * (iota + 1)
	colNameBase
	prefixBase
)

const tokenBandWidth = 10_000

// MaxLength values are clipped into [1, 9999] and offset from lengthBase;
// values outside the band clip to the nearest bound.
const (
	lengthBase   SchemaFlag = 90_000
	minLengthVal            = 1
	maxLengthVal            = 9999
)

// Length returns the range-coded MaxLength flag for n, clipping to
// [1, 9999].
func Length(n int) SchemaFlag {
	if n < minLengthVal {
		n = minLengthVal
	}
	if n > maxLengthVal {
		n = maxLengthVal
	}
	return lengthBase + SchemaFlag(n)
}

// lengthValue reports the integer a Length flag encodes.
func lengthValue(f SchemaFlag) (int, bool) {
	if f > lengthBase && f <= lengthBase+maxLengthVal {
		return int(f - lengthBase), true
	}
	return 0, false
}

// keyPosition reports the key position (1..5) a flag represents, or 0.
func keyPosition(f SchemaFlag) int {
	switch f {
	case Key1:
		return 1
	case Key2:
		return 2
	case Key3:
		return 3
	case Key4:
		return 4
	case Key5:
		return 5
	}
	return 0
}

// band identifies which token-backed family, if any, a flag belongs to.
func (f SchemaFlag) band() (base SchemaFlag, ok bool) {
	switch {
	case f > altNameBase && f <= altNameBase+tokenBandWidth:
		return altNameBase, true
	case f > colNameBase && f <= colNameBase+tokenBandWidth:
		return colNameBase, true
	case f > prefixBase && f <= prefixBase+tokenBandWidth:
		return prefixBase, true
	}
	return Unset, false
}

// String renders a human name for well-known flags; range-coded flags
// render as their family name (Length, AltName, ColName, Prefix), without
// the payload.
func (f SchemaFlag) String() string {
	switch f {
	case Unset:
		return "Unset"
	case InitialNull:
		return "InitialNull"
	case VectorNull:
		return "VectorNull"
	case XmlAsAttr:
		return "XmlAsAttr"
	case Embedded:
		return "Embedded"
	case DbCompact:
		return "DbCompact"
	case DbDetail:
		return "DbDetail"
	case DbAuditTrail:
		return "DbAuditTrail"
	case DbJson:
		return "DbJson"
	case OTypeAsXRoot:
		return "OTypeAsXRoot"
	case XmlEncrypt:
		return "XmlEncrypt"
	case DbVersionField:
		return "DbVersionField"
	case Key1, Key2, Key3, Key4, Key5:
		return "Key"
	}
	if _, ok := lengthValue(f); ok {
		return "Length"
	}
	if base, ok := f.band(); ok {
		switch base {
		case altNameBase:
			return "AltName"
		case colNameBase:
			return "ColName"
		case prefixBase:
			return "Prefix"
		}
	}
	return "SchemaFlag(?)"
}
