package scissor

import "math"

// defaultUnit 是模板单元：铰点位于两杆中点（c = a/2, d = b/2）。
var defaultUnit = Dimension{A: 1.0, B: 1.0, C: 0.5, D: 0.5}

// DefaultChain 生成 size 个模板单元组成的链条，size 为 0 时返回 ErrInvalidSize。
func DefaultChain(size uint) (Chain, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}
	chain := make(Chain, size)
	for i := range chain {
		chain[i] = defaultUnit
	}
	return chain, nil
}

// MakeChain 是 DefaultChain 的扁平边界形式，失败时返回 CodeInvalidSize。
func MakeChain(size uint) (Chain, Code) {
	chain, err := DefaultChain(size)
	if err != nil {
		return nil, CodeInvalidSize
	}
	return chain, CodeSuccess
}

// ValidateChain 按顺序检查每个单元，返回第一个违反约束的单元（*ValidationError）。
func ValidateChain(chain Chain) error {
	if len(chain) == 0 {
		return &ValidationError{Index: -1, Rule: RuleEmpty}
	}
	for i, dim := range chain {
		if rule := checkUnit(dim); rule != 0 {
			return &ValidationError{Index: i, Rule: rule, Unit: dim}
		}
	}
	return nil
}

func checkUnit(d Dimension) Rule {
	for _, v := range [...]float64{d.A, d.B, d.C, d.D} {
		// NaN 不满足 v > 0，一并拒绝。
		if !(v > 0) || math.IsInf(v, 0) {
			return RuleNonPositive
		}
	}
	if d.C > d.A {
		return RulePivotBeyondA
	}
	if d.D > d.B {
		return RulePivotBeyondB
	}
	return 0
}
