package scissor

import (
	"math"
	"slices"
)

// ReachEnvelope 返回张开角从 opts.MinAngle 到 angle 变化时链条末端伸展的取值区间。
func ReachEnvelope(chain Chain, angle float64, opts SolveOptions) (Envelope, error) {
	opts = opts.normalized()
	if err := ValidateChain(chain); err != nil {
		return Envelope{}, err
	}
	env, _, err := envelope(chain, angle, opts)
	return env, err
}

// envelopeSamples 为搜索伸展极值时张开角区间的等分数。
const envelopeSamples = 64

// refineIterations 为黄金分割细化极值的迭代次数，区间每次缩小约 0.618 倍。
const refineIterations = 80

// invPhi 为黄金分割比的倒数。
var invPhi = (math.Sqrt(5) - 1) / 2

// envelope 返回 [opts.MinAngle, angle] 上伸展 R(α) 的真实极值。R 对 α 不一定单调，
// 因此先等距采样，再在最大、最小采样点附近用黄金分割细化。返回的姿态按 alpha 递增，
// 含两端、全部可行采样与细化后的极值点，供约束求解寻找括号区间。
func envelope(chain Chain, angle float64, opts SolveOptions) (Envelope, []*chainPose, error) {
	if err := checkAngle(angle, opts); err != nil {
		return Envelope{}, nil, err
	}
	lo, idx := poseChain(chain, opts.MinAngle, opts.Mode)
	if lo == nil {
		return Envelope{}, nil, unreachable("收拢姿态下第 %d 个单元无法闭合", idx)
	}
	hi, idx := poseChain(chain, angle, opts.Mode)
	if hi == nil {
		return Envelope{}, nil, unreachable("张开角 %g 下第 %d 个单元无法闭合", angle, idx)
	}

	poses := make([]*chainPose, 0, envelopeSamples+3)
	poses = append(poses, lo)
	step := (angle - opts.MinAngle) / envelopeSamples
	for i := 1; i < envelopeSamples; i++ {
		// inherited 模式下中间姿态可能无法闭合，跳过即可。
		if p, _ := poseChain(chain, opts.MinAngle+step*float64(i), opts.Mode); p != nil {
			poses = append(poses, p)
		}
	}
	poses = append(poses, hi)

	iMin, iMax := 0, 0
	for i, p := range poses {
		if p.reach < poses[iMin].reach {
			iMin = i
		}
		if p.reach > poses[iMax].reach {
			iMax = i
		}
	}
	sampledMin, sampledMax := poses[iMin].reach, poses[iMax].reach
	pMax := refineExtreme(chain, poses, iMax, 1, opts.Mode)
	pMin := refineExtreme(chain, poses, iMin, -1, opts.Mode)
	if pMax != nil && pMax.reach > sampledMax {
		poses = insertPose(poses, pMax)
	}
	if pMin != nil && pMin.reach < sampledMin {
		poses = insertPose(poses, pMin)
	}

	env := Envelope{
		MinReach:    math.Inf(1),
		MaxReach:    math.Inf(-1),
		ClosedAngle: opts.MinAngle,
		OpenAngle:   angle,
	}
	for _, p := range poses {
		env.MinReach = math.Min(env.MinReach, p.reach)
		env.MaxReach = math.Max(env.MaxReach, p.reach)
	}
	Logger().Debug("scissor: 伸展包络", "min", env.MinReach, "max", env.MaxReach, "angle", angle, "mode", opts.Mode.String())
	return env, poses, nil
}

// refineExtreme 在采样点 i 的相邻区间内做黄金分割搜索。sign 为 1 找最大值，-1 找最小值。
// 无法闭合的姿态视为最差。
func refineExtreme(chain Chain, poses []*chainPose, i int, sign float64, mode AngleMode) *chainPose {
	a := poses[max(i-1, 0)].alpha
	b := poses[min(i+1, len(poses)-1)].alpha
	if !(b > a) {
		return nil
	}
	eval := func(alpha float64) (*chainPose, float64) {
		p, _ := poseChain(chain, alpha, mode)
		if p == nil {
			return nil, math.Inf(-1)
		}
		return p, sign * p.reach
	}

	x1 := b - invPhi*(b-a)
	x2 := a + invPhi*(b-a)
	p1, f1 := eval(x1)
	p2, f2 := eval(x2)
	for k := 0; k < refineIterations; k++ {
		if f1 >= f2 {
			b, x2, p2, f2 = x2, x1, p1, f1
			x1 = b - invPhi*(b-a)
			p1, f1 = eval(x1)
		} else {
			a, x1, p1, f1 = x1, x2, p2, f2
			x2 = a + invPhi*(b-a)
			p2, f2 = eval(x2)
		}
	}
	if f1 >= f2 {
		return p1
	}
	return p2
}

// insertPose 按 alpha 顺序插入姿态。
func insertPose(poses []*chainPose, p *chainPose) []*chainPose {
	i := len(poses)
	for i > 0 && poses[i-1].alpha > p.alpha {
		i--
	}
	return slices.Insert(poses, i, p)
}

// Sweep 在包络内等距取 steps+1 个目标伸展逐一求解，记录末端轨迹。
// 单点失败只体现在该点的 Code 上；包络本身不可用时返回错误。
func Sweep(chain Chain, angle float64, steps int, opts SolveOptions) ([]SweepPoint, error) {
	if steps < 1 {
		steps = 1
	}
	env, err := ReachEnvelope(chain, angle, opts)
	if err != nil {
		return nil, err
	}
	width := env.MaxReach - env.MinReach
	out := make([]SweepPoint, 0, steps+1)
	for i := 0; i <= steps; i++ {
		r := env.MinReach + width*float64(i)/float64(steps)
		if i == steps {
			r = env.MaxReach
		}
		p := SweepPoint{Radius: r}
		sol, err := Solve(chain, Actuation{Radius: r, Angle: angle}, opts)
		if err != nil {
			p.Code = CodeOf(err)
		} else {
			p.Angle = sol.Angle
			p.Tip = sol.Tip
		}
		out = append(out, p)
	}
	return out, nil
}
