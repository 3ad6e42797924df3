package core

import "github.com/AlMarentu/mobs-go/convert"

// MemberInfo is the reflective leaf summary; it lives in package convert
// (which has no dependency on core) and is re-exported here so
// record/navigator code can refer to core.MemberInfo.
type MemberInfo = convert.MemberInfo

// TimeGranularity re-exports convert.TimeGranularity.
type TimeGranularity = convert.TimeGranularity

// Granularity levels, re-exported from package convert.
const (
	GranularitySecond = convert.GranularitySecond
	GranularityMilli  = convert.GranularityMilli
	GranularityMicro  = convert.GranularityMicro
	GranularityNano   = convert.GranularityNano
	GranularityDay    = convert.GranularityDay
)
