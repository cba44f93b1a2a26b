package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for length and line-height.
// The layout unit is the CSS pixel (1in = 96px).

// Unit represents the original unit of a length value as specified in DSL.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers, read as px for lengths and as factors for line-height
	UnitPX                  // CSS pixels
	UnitPT                  // points
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitPercent             // relative to a reference length
	UnitFactor              // "1.5x"
)

// Conversion constants to px.
const (
	PxPerIn = 96.0
	PxPerPt = PxPerIn / 72
	PxPerMm = PxPerIn / 25.4
)

var unitSuffixes = []struct {
	s string
	u Unit
}{{"px", UnitPX}, {"pt", UnitPT}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"%", UnitPercent}, {"x", UnitFactor}}

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	for _, suf := range unitSuffixes {
		if suf.u == u {
			return suf.s
		}
	}
	return ""
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToPX converts to px; percentages resolve against ref, factors multiply ref.
func (l Length) ToPX(ref float64) float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value * PxPerPt
	case UnitMM:
		return l.Value * PxPerMm
	case UnitCM:
		return l.Value * 10 * PxPerMm
	case UnitIN:
		return l.Value * PxPerIn
	case UnitPercent:
		return ref * l.Value / 100
	case UnitFactor:
		return ref * l.Value
	default:
		return l.Value
	}
}

// ParseLength parses a DSL length string preserving its unit.
func ParseLength(value string) (Length, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := lower
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec preserves original author intent: either a factor (e.g., 1.2 or 1.2x) or an absolute length (e.g., 18px).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight 解析 line-height 取值；无单位数字与 x 后缀视为倍数。
func ParseLineHeight(value string) (LineHeightSpec, bool) {
	l, ok := ParseLength(value)
	if !ok || l.Value <= 0 {
		return LineHeightSpec{}, false
	}
	switch l.Unit {
	case UnitNone, UnitFactor:
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, true
	case UnitPercent:
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value / 100}, true
	default:
		return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, true
	}
}

// Resolve computes the absolute line height in px for a font size in px.
func (s LineHeightSpec) Resolve(fontSize float64) float64 {
	switch s.Kind {
	case LineHeightAbsolute:
		return s.Len.ToPX(fontSize)
	default:
		return fontSize * s.Factor
	}
}
