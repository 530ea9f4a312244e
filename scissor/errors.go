package scissor

import (
	"errors"
	"fmt"
)

// Code 是跨边界使用的错误码，0 表示成功。
type Code int64

const (
	CodeSuccess           Code = 0
	CodeInvalidChain      Code = 1
	CodeUnreachablePose   Code = 2
	CodeNumericDivergence Code = 3
	CodeInvalidSize       Code = 4
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "Success"
	case CodeInvalidChain:
		return "InvalidChain"
	case CodeUnreachablePose:
		return "UnreachablePose"
	case CodeNumericDivergence:
		return "NumericDivergence"
	case CodeInvalidSize:
		return "InvalidSize"
	default:
		return fmt.Sprintf("Code(%d)", int64(c))
	}
}

var (
	ErrInvalidChain      = errors.New("scissor: invalid chain")
	ErrUnreachablePose   = errors.New("scissor: unreachable pose")
	ErrNumericDivergence = errors.New("scissor: numeric divergence")
	ErrInvalidSize       = errors.New("scissor: invalid chain size")
)

// Rule 标识被违反的单元约束。
type Rule int

const (
	RuleEmpty Rule = iota + 1
	RuleNonPositive
	RulePivotBeyondA
	RulePivotBeyondB
)

func (r Rule) String() string {
	switch r {
	case RuleEmpty:
		return "empty"
	case RuleNonPositive:
		return "non-positive"
	case RulePivotBeyondA:
		return "c>a"
	case RulePivotBeyondB:
		return "d>b"
	default:
		return "unknown"
	}
}

// ValidationError 指出第一个不合法单元的索引与违反的约束。
type ValidationError struct {
	Index int
	Rule  Rule
	Unit  Dimension
}

func (e *ValidationError) Error() string {
	if e.Rule == RuleEmpty {
		return "scissor: 链条为空"
	}
	return fmt.Sprintf("scissor: 第 %d 个单元不合法 (%s): a=%g b=%g c=%g d=%g",
		e.Index, e.Rule, e.Unit.A, e.Unit.B, e.Unit.C, e.Unit.D)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidChain }

// SolveError 为求解失败附带原因，可通过 errors.Is 与哨兵错误比较。
type SolveError struct {
	Code   Code
	Reason string
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("scissor: %s: %s", e.Code, e.Reason)
}

func (e *SolveError) Unwrap() error {
	switch e.Code {
	case CodeInvalidChain:
		return ErrInvalidChain
	case CodeUnreachablePose:
		return ErrUnreachablePose
	case CodeNumericDivergence:
		return ErrNumericDivergence
	case CodeInvalidSize:
		return ErrInvalidSize
	default:
		return nil
	}
}

func unreachable(format string, args ...any) error {
	return &SolveError{Code: CodeUnreachablePose, Reason: fmt.Sprintf(format, args...)}
}

func diverged(format string, args ...any) error {
	return &SolveError{Code: CodeNumericDivergence, Reason: fmt.Sprintf(format, args...)}
}

// CodeOf 将错误映射为边界错误码；nil 为 CodeSuccess，未知错误按 NumericDivergence 处理。
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, ErrInvalidChain):
		return CodeInvalidChain
	case errors.Is(err, ErrUnreachablePose):
		return CodeUnreachablePose
	case errors.Is(err, ErrInvalidSize):
		return CodeInvalidSize
	default:
		return CodeNumericDivergence
	}
}
