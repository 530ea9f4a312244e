package scissor

import (
	"fmt"
	"strings"
)

const (
	DefaultTolerance     = 1e-9
	DefaultMaxIterations = 200
)

// AngleMode 决定张开角如何作用到各个单元。
type AngleMode int

const (
	// ModeUniform 每个单元使用同一个张开角。
	ModeUniform AngleMode = iota
	// ModeInherited 只有底座单元使用给定张开角，后续单元继承上一级顶边跨度，由连杆关系决定自身张开角。
	ModeInherited
)

func (m AngleMode) String() string {
	switch m {
	case ModeUniform:
		return "uniform"
	case ModeInherited:
		return "inherited"
	default:
		return fmt.Sprintf("AngleMode(%d)", int(m))
	}
}

// ParseAngleMode 解析 "uniform" / "inherited"，空字符串视为 uniform。
func ParseAngleMode(s string) (AngleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform", "same":
		return ModeUniform, nil
	case "inherited", "inherit", "linked":
		return ModeInherited, nil
	default:
		return ModeUniform, fmt.Errorf("scissor: 未知的张开角模式 %q", s)
	}
}

func (m AngleMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *AngleMode) UnmarshalText(b []byte) error {
	v, err := ParseAngleMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SolveOptions 配置求解器；零值字段使用默认值。
type SolveOptions struct {
	Mode AngleMode
	// MinAngle 为完全收拢时的张开角（弧度），默认 0。
	MinAngle float64
	// Tolerance 为伸展收敛的相对容差。
	Tolerance float64
	// MaxIterations 为约束求解的迭代上限，超过即报告 NumericDivergence。
	MaxIterations int
}

// DefaultSolveOptions 返回默认配置（uniform 模式）。
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Mode:          ModeUniform,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o SolveOptions) normalized() SolveOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MinAngle < 0 {
		o.MinAngle = 0
	}
	return o
}

// BuildOptions 配置从 DSL 文档构建链条时的单位换算。
type BuildOptions struct {
	// Unit 为长度的目标单位；UnitNone 表示：只要文档里出现带单位的长度就统一换算为毫米。
	Unit Unit
	// Solve 为文档 pose 段未覆盖时使用的求解配置。
	Solve SolveOptions
}
