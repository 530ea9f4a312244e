package scissor

import "math"

// Solve 求解链条在给定驱动输入下的姿态。
//
// 流程：校验链条 → 计算 [收拢, 张开到 in.Angle] 两端的伸展包络并检查可达性 →
// 在张开角区间内二分，使末端伸展收敛到 in.Radius → 逐单元输出 A、B 两根杆件。
// 任一失败都不返回几何。
func Solve(chain Chain, in Actuation, opts SolveOptions) (*Solution, error) {
	opts = opts.normalized()
	if err := ValidateChain(chain); err != nil {
		return nil, err
	}
	env, poses, err := envelope(chain, in.Angle, opts)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(in.Radius) || math.IsInf(in.Radius, 0) {
		return nil, unreachable("伸展 %g 不是有限值", in.Radius)
	}
	if !env.Contains(in.Radius) {
		return nil, unreachable("伸展 %g 超出可达区间 [%g, %g]", in.Radius, env.MinReach, env.MaxReach)
	}

	pose, iters, err := constrain(chain, in.Radius, poses, opts)
	if err != nil {
		Logger().Debug("scissor: 约束求解失败", "radius", in.Radius, "angle", in.Angle, "iterations", iters, "error", err)
		return nil, err
	}
	Logger().Debug("scissor: 求解完成",
		"units", len(chain),
		"mode", opts.Mode.String(),
		"angle", pose.alpha,
		"reach", pose.reach,
		"iterations", iters,
	)
	sol := newSolution(pose, opts.Mode)
	sol.Iterations = iters
	sol.Envelope = env
	return sol, nil
}

// SolveResult 是 Solve 的扁平边界形式，使用默认配置。
func SolveResult(chain Chain, radius, angle float64) Result {
	sol, err := Solve(chain, Actuation{Radius: radius, Angle: angle}, DefaultSolveOptions())
	if err != nil {
		return Result{Code: CodeOf(err)}
	}
	return sol.Result()
}

// PoseAt 直接在张开角 alpha 下求正运动学，不做伸展约束。alpha 取值 [0, π)。
func PoseAt(chain Chain, alpha float64, opts SolveOptions) (*Solution, error) {
	if err := ValidateChain(chain); err != nil {
		return nil, err
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha >= math.Pi {
		return nil, unreachable("张开角 %g 超出 [0, π)", alpha)
	}
	pose, idx := poseChain(chain, alpha, opts.Mode)
	if pose == nil {
		return nil, unreachable("张开角 %g 下第 %d 个单元无法闭合", alpha, idx)
	}
	return newSolution(pose, opts.Mode), nil
}

// constrain 在按张开角递增排列的姿态中寻找夹住 target 的相邻两点并二分求解。
// 多个区间都能夹住时取张开角最大的一段，端点精确命中时直接返回该姿态。
func constrain(chain Chain, target float64, poses []*chainPose, opts SolveOptions) (*chainPose, int, error) {
	for i := len(poses) - 1; i >= 0; i-- {
		if poses[i].reach == target {
			return poses[i], 0, nil
		}
	}
	for i := len(poses) - 1; i > 0; i-- {
		fa, fb := poses[i-1].reach-target, poses[i].reach-target
		if (fa < 0) != (fb < 0) {
			return bisect(chain, target, poses[i-1], poses[i], opts)
		}
	}
	return nil, 0, diverged("伸展 %g 在采样姿态间没有变号区间", target)
}

// bisect 在 lo、hi 两个残差异号的姿态之间二分张开角。
func bisect(chain Chain, target float64, lo, hi *chainPose, opts SolveOptions) (*chainPose, int, error) {
	tol := opts.Tolerance * math.Max(1, math.Abs(target))
	a, b := lo.alpha, hi.alpha
	fa := lo.reach - target
	var residual float64
	for i := 1; i <= opts.MaxIterations; i++ {
		mid := a + (b-a)/2
		pose, idx := poseChain(chain, mid, opts.Mode)
		if pose == nil {
			return nil, i, diverged("张开角 %g 下第 %d 个单元无法闭合", mid, idx)
		}
		residual = pose.reach - target
		if math.Abs(residual) <= tol {
			return pose, i, nil
		}
		if (residual < 0) == (fa < 0) {
			a, fa = mid, residual
		} else {
			b = mid
		}
	}
	return nil, opts.MaxIterations, diverged("%d 次迭代后残差 %g 仍大于容差 %g", opts.MaxIterations, residual, tol)
}

func newSolution(p *chainPose, mode AngleMode) *Solution {
	return &Solution{
		Mode:     mode,
		Angle:    p.alpha,
		Reach:    p.reach,
		Tip:      pt(p.tip),
		Units:    p.unitPoses(),
		Segments: p.segments(),
	}
}

func checkAngle(angle float64, opts SolveOptions) error {
	if math.IsNaN(angle) || angle <= 0 || angle >= math.Pi {
		return unreachable("张开角 %g 不在 (0, π) 内", angle)
	}
	if opts.MinAngle >= angle {
		return unreachable("收拢角 %g 不小于张开角 %g", opts.MinAngle, angle)
	}
	return nil
}
