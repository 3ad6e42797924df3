// Package convert implements the typed round-trip between a leaf's Go
// value and its text/number wire forms, honoring the "compact" hint for
// bool values (rendered as 1/0). Dispatch is on reflect.Kind under a small
// generic surface, so one implementation covers every leaf type a record
// can declare.
package convert

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TimeGranularity describes the resolution a time-typed leaf stores.
type TimeGranularity int

// Granularity levels: seconds through nanoseconds in increasing
// resolution, then whole days.
const (
	GranularitySecond TimeGranularity = iota
	GranularityMilli
	GranularityMicro
	GranularityNano
	GranularityDay
)

// MemberInfo is the reflective summary of a leaf's static and current
// state: signed/unsigned/blob/enum/time flags, numeric bounds, time
// granularity, and the current value.
type MemberInfo struct {
	IsSigned   bool
	IsUnsigned bool
	IsBlob     bool
	IsEnum     bool
	IsTime     bool
	Bool       bool

	Min int64
	Max uint64

	Granularity TimeGranularity

	Int    int64
	UInt   uint64
	Time   time.Time
	Blob   []byte
	Length int
}

// ToStrHint controls text rendering.
type ToStrHint struct {
	Compact bool // render bools and enum-like values in their numeric form
}

// FromStrHint controls text parsing.
type FromStrHint struct {
	Compact  bool // accept the underlying number for enum-like values
	Extended bool // accept a looser/extended textual grammar
}

// IsCharType reports whether T renders as a quoted/char-like value in JSON
// and as element text (never a bare attribute number) in XML.
func IsCharType[T any]() bool {
	var zero T
	switch any(zero).(type) {
	case string, time.Time, []byte:
		return true
	}
	rv := reflect.TypeOf(zero)
	if rv == nil {
		return true // interface/pointer-ish: treat conservatively as char-typed
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return false
	}
	return true
}

// ToStr renders v as text.
func ToStr[T any](v T, hint ToStrHint) string {
	switch x := any(v).(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if hint.Compact {
			if rv.Bool() {
				return "1"
			}
			return "0"
		}
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}

// FromStr parses s into *dst.
func FromStr[T any](dst *T, s string, hint FromStrHint) error {
	switch p := any(dst).(type) {
	case *string:
		*p = s
		return nil
	case *time.Time:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			if hint.Extended {
				if t2, err2 := time.Parse("2006-01-02", s); err2 == nil {
					*p = t2
					return nil
				}
			}
			return fmt.Errorf("convert: invalid time %q: %w", s, err)
		}
		*p = t
		return nil
	case *[]byte:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("convert: invalid base64: %w", err)
		}
		*p = b
		return nil
	}
	rv := reflect.ValueOf(dst).Elem()
	switch rv.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("convert: invalid bool %q: %w", s, err)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("convert: invalid int %q: %w", s, err)
		}
		if rv.OverflowInt(n) {
			return fmt.Errorf("convert: %d overflows %s", n, rv.Type())
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("convert: invalid uint %q: %w", s, err)
		}
		if rv.OverflowUint(n) {
			return fmt.Errorf("convert: %d overflows %s", n, rv.Type())
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("convert: invalid float %q: %w", s, err)
		}
		rv.SetFloat(f)
	case reflect.String:
		rv.SetString(s)
	default:
		return fmt.Errorf("convert: unsupported leaf type %s", rv.Type())
	}
	return nil
}

// FromInt64 assigns an int64 numeric value into *dst.
func FromInt64[T any](dst *T, v int64) error {
	rv := reflect.ValueOf(dst).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.OverflowInt(v) {
			return fmt.Errorf("convert: %d overflows %s", v, rv.Type())
		}
		rv.SetInt(v)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v < 0 || rv.OverflowUint(uint64(v)) {
			return fmt.Errorf("convert: %d overflows %s", v, rv.Type())
		}
		rv.SetUint(uint64(v))
		return nil
	case reflect.Float32, reflect.Float64:
		rv.SetFloat(float64(v))
		return nil
	case reflect.Bool:
		rv.SetBool(v != 0)
		return nil
	}
	return fmt.Errorf("convert: %s cannot accept an integer", rv.Type())
}

// FromUint64 assigns a uint64 numeric value into *dst.
func FromUint64[T any](dst *T, v uint64) error {
	rv := reflect.ValueOf(dst).Elem()
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.OverflowUint(v) {
			return fmt.Errorf("convert: %d overflows %s (version overflow)", v, rv.Type())
		}
		rv.SetUint(v)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v > (1<<63)-1 || rv.OverflowInt(int64(v)) {
			return fmt.Errorf("convert: %d overflows %s", v, rv.Type())
		}
		rv.SetInt(int64(v))
		return nil
	}
	return fmt.Errorf("convert: %s cannot accept an unsigned integer", rv.Type())
}

// FromDouble assigns a float64 value into *dst.
func FromDouble[T any](dst *T, v float64) error {
	rv := reflect.ValueOf(dst).Elem()
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		rv.SetFloat(v)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(int64(v))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v < 0 {
			return fmt.Errorf("convert: negative value %v cannot convert to %s", v, rv.Type())
		}
		rv.SetUint(uint64(v))
		return nil
	}
	return fmt.Errorf("convert: %s cannot accept a float", rv.Type())
}

// ToDouble reports v as a float64, when the underlying kind is numeric.
func ToDouble[T any](v T) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// Info builds a MemberInfo snapshot describing v's static shape and
// current value, for introspection without the concrete Go type.
func Info[T any](v T) MemberInfo {
	var mi MemberInfo
	switch x := any(v).(type) {
	case time.Time:
		mi.IsTime = true
		mi.Time = x
		mi.Granularity = GranularityNano
		return mi
	case []byte:
		mi.IsBlob = true
		mi.Blob = x
		mi.Length = len(x)
		return mi
	case bool:
		mi.Bool = x
		return mi
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		mi.IsSigned = true
		mi.Int = rv.Int()
		mi.Min, mi.Max = intRange(rv.Type())
		mi.IsEnum = isEnumType(rv.Type())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		mi.IsUnsigned = true
		mi.UInt = rv.Uint()
		mi.Max = uintMax(rv.Type())
		mi.IsEnum = isEnumType(rv.Type())
	case reflect.String:
		mi.Length = len(rv.String())
	}
	return mi
}

// isEnumType reports whether t is a named integer type distinct from the
// predeclared one, the shape an enumeration is declared with in Go.
func isEnumType(t reflect.Type) bool {
	return t.PkgPath() != "" && t.Name() != ""
}

func intRange(t reflect.Type) (min int64, max uint64) {
	switch t.Bits() {
	case 8:
		return -1 << 7, 1<<7 - 1
	case 16:
		return -1 << 15, 1<<15 - 1
	case 32:
		return -1 << 31, 1<<31 - 1
	default:
		return -1 << 63, 1<<63 - 1
	}
}

func uintMax(t reflect.Type) uint64 {
	switch t.Bits() {
	case 8:
		return 1<<8 - 1
	case 16:
		return 1<<16 - 1
	case 32:
		return 1<<32 - 1
	default:
		return 1<<64 - 1
	}
}
