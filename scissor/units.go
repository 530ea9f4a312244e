package scissor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths and angles used by chain description files.

// Unit represents the original unit of a length value as written in a chain file.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, kept as-is
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitM                // meters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"m", UnitM}}

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitM:
		return "m"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// ParseUnit accepts the suffixes above; "" and "none" map to UnitNone.
func ParseUnit(s string) (Unit, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == "none" {
		return UnitNone, nil
	}
	for _, suf := range unitSuffixes {
		if v == suf.s {
			return suf.u, nil
		}
	}
	return UnitNone, fmt.Errorf("未知长度单位 %q", s)
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) mm() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitM:
		return l.Value * 1000
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// To converts this length to target unit. Unit-less values pass through unchanged.
func (l Length) To(target Unit) float64 {
	if l.Unit == UnitNone || l.Unit == target || target == UnitNone {
		return l.Value
	}
	mm := l.mm()
	switch target {
	case UnitCM:
		return mm / 10
	case UnitM:
		return mm / 1000
	case UnitIN:
		return mm / 25.4
	case UnitPT:
		return mm * MmToPt
	default:
		return mm
	}
}

// ParseLength parses "12.5mm", "3in", "0.4" and friends.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseAngle parses "90deg", "1.2rad" or a bare number (radians).
func ParseAngle(value string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "deg"):
		v = strings.TrimSuffix(v, "deg")
		scale = math.Pi / 180
	case strings.HasSuffix(v, "rad"):
		v = strings.TrimSuffix(v, "rad")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析角度 %q: %w", value, err)
	}
	return f * scale, nil
}
