package scissor

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"
)

const geomEps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= geomEps }

func segLen(s Segment) float64 { return math.Hypot(s.X2-s.X1, s.Y2-s.Y1) }

func mustEnvelope(t *testing.T, chain Chain, angle float64, opts SolveOptions) Envelope {
	t.Helper()
	env, err := ReachEnvelope(chain, angle, opts)
	if err != nil {
		t.Fatalf("计算包络失败: %v", err)
	}
	return env
}

// TestSymmetricUnitQuarterTurn 对称单元 {2,2,1,1} 在 α=π/2 时末端伸展为 √2。
func TestSymmetricUnitQuarterTurn(t *testing.T) {
	chain := Chain{{A: 2, B: 2, C: 1, D: 1}}
	sol, err := PoseAt(chain, math.Pi/2, DefaultSolveOptions())
	if err != nil {
		t.Fatalf("PoseAt 失败: %v", err)
	}
	if !near(sol.Reach, math.Sqrt2) {
		t.Fatalf("期望伸展 √2，实际 %g", sol.Reach)
	}
	if !near(sol.Tip.X, 0) || !near(sol.Tip.Y, math.Sqrt2) {
		t.Fatalf("期望末端 (0, √2)，实际 %+v", sol.Tip)
	}
	u := sol.Units[0]
	if !near(u.Pivot.X, math.Sqrt2/2) || !near(u.Pivot.Y, math.Sqrt2/2) {
		t.Fatalf("铰点位置错误: %+v", u.Pivot)
	}
	if !near(u.Span, math.Sqrt2) || !near(u.Opening, math.Pi/2) {
		t.Fatalf("底边或张开角错误: span=%g opening=%g", u.Span, u.Opening)
	}
	for i, s := range sol.Segments {
		if !near(segLen(s), 2) {
			t.Fatalf("第 %d 根杆件长度应为 2，实际 %g", i, segLen(s))
		}
	}
}

func TestSolveConvergesInsideEnvelope(t *testing.T) {
	chain, _ := DefaultChain(3)
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 2.0, opts)
	target := env.MinReach + 0.37*(env.MaxReach-env.MinReach)

	sol, err := Solve(chain, Actuation{Radius: target, Angle: 2.0}, opts)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	if math.Abs(sol.Reach-target) > DefaultTolerance*math.Max(1, target) {
		t.Fatalf("伸展未收敛: 期望 %g，实际 %g", target, sol.Reach)
	}
	if sol.Angle <= 0 || sol.Angle >= 2.0 {
		t.Fatalf("有效张开角应位于 (0, 2)，实际 %g", sol.Angle)
	}
	if sol.Iterations == 0 || sol.Iterations > DefaultMaxIterations {
		t.Fatalf("迭代次数异常: %d", sol.Iterations)
	}
	if len(sol.Segments) != 2*len(chain) {
		t.Fatalf("期望 %d 根杆件，实际 %d", 2*len(chain), len(sol.Segments))
	}

	for i, d := range chain {
		a, b := sol.Segments[2*i], sol.Segments[2*i+1]
		if !near(segLen(a), d.A) || !near(segLen(b), d.B) {
			t.Fatalf("第 %d 个单元杆长错误: a=%g b=%g", i, segLen(a), segLen(b))
		}
		u := sol.Units[i]
		if !near(math.Hypot(u.Pivot.X-a.X1, u.Pivot.Y-a.Y1), d.C) {
			t.Fatalf("第 %d 个单元 |A0P| 应为 c", i)
		}
		if !near(math.Hypot(u.Pivot.X-b.X1, u.Pivot.Y-b.Y1), d.D) {
			t.Fatalf("第 %d 个单元 |B0P| 应为 d", i)
		}
		if i > 0 {
			prevB := sol.Segments[2*i-1]
			if !near(a.X1, prevB.X2) || !near(a.Y1, prevB.Y2) {
				t.Fatalf("第 %d 个单元 A 杆应起于上一级 B 杆末端", i)
			}
		}
	}
	last := sol.Segments[len(sol.Segments)-1]
	if !near(last.X2, sol.Tip.X) || !near(last.Y2, sol.Tip.Y) {
		t.Fatalf("末端应为最后一根 B 杆的终点")
	}
}

func TestSolveExactEnvelopeBounds(t *testing.T) {
	chain, _ := DefaultChain(2)
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 2.5, opts)

	hi, err := Solve(chain, Actuation{Radius: env.MaxReach, Angle: 2.5}, opts)
	if err != nil {
		t.Fatalf("上界应可达: %v", err)
	}
	if hi.Angle != 2.5 || hi.Iterations != 0 || hi.Reach != env.MaxReach {
		t.Fatalf("上界应直接返回张开姿态: %+v", hi)
	}
	lo, err := Solve(chain, Actuation{Radius: env.MinReach, Angle: 2.5}, opts)
	if err != nil {
		t.Fatalf("下界应可达: %v", err)
	}
	if lo.Angle != 0 || lo.Iterations != 0 {
		t.Fatalf("下界应直接返回收拢姿态: angle=%g iters=%d", lo.Angle, lo.Iterations)
	}
}

// 该链条的伸展先增后减，峰值位于张开角中段而非两端。
var humpChain = Chain{{A: .367, B: 2.869, C: .188, D: .829}, {A: 1.357, B: 3.0, C: .624, D: .286}}

func TestEnvelopeFindsInteriorPeak(t *testing.T) {
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, humpChain, math.Pi/2, opts)

	closed, _ := PoseAt(humpChain, 0, opts)
	open, _ := PoseAt(humpChain, math.Pi/2, opts)
	inner, err := PoseAt(humpChain, 0.754, opts)
	if err != nil {
		t.Fatalf("PoseAt 失败: %v", err)
	}
	if inner.Reach <= math.Max(closed.Reach, open.Reach) {
		t.Fatalf("α=0.754 的伸展 %g 应大于两端 %g、%g", inner.Reach, closed.Reach, open.Reach)
	}
	if math.Abs(env.MaxReach-4.080536103174117) > 1e-6 || !near(env.MinReach, closed.Reach) {
		t.Fatalf("包络应为 [%g, 4.0805...]，实际 %+v", closed.Reach, env)
	}
	for i := 0; i <= 200; i++ {
		alpha := math.Pi / 2 * float64(i) / 200
		sol, err := PoseAt(humpChain, alpha, opts)
		if err != nil {
			t.Fatalf("α=%g 应可闭合: %v", alpha, err)
		}
		if sol.Reach < env.MinReach || sol.Reach > env.MaxReach {
			t.Fatalf("α=%g 的伸展 %g 落在包络 %+v 之外", alpha, sol.Reach, env)
		}
	}

	if res := SolveResult(humpChain, inner.Reach, math.Pi/2); res.Code != CodeSuccess || len(res.Segments) != 4 {
		t.Fatalf("中段可达的伸展 %g 应可解，实际 %s", inner.Reach, res.Code)
	}
	peak, err := Solve(humpChain, Actuation{Radius: env.MaxReach, Angle: math.Pi / 2}, opts)
	if err != nil {
		t.Fatalf("峰值伸展应可解: %v", err)
	}
	if peak.Iterations != 0 || math.Abs(peak.Angle-1.2229) > 1e-3 {
		t.Fatalf("峰值应直接返回极值姿态: angle=%g iters=%d", peak.Angle, peak.Iterations)
	}
}

func TestSolveResultQuarterTurnMaxReach(t *testing.T) {
	chain := Chain{{A: 2, B: 2, C: 1, D: 1}}
	env := mustEnvelope(t, chain, math.Pi/2, DefaultSolveOptions())
	res := SolveResult(chain, env.MaxReach, math.Pi/2)
	if res.Code != CodeSuccess {
		t.Fatalf("最大伸展应可解，实际 %s", res.Code)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("期望 2 根杆件，实际 %d", len(res.Segments))
	}
	for i, s := range res.Segments {
		if !near(segLen(s), 2) {
			t.Fatalf("第 %d 根杆件长度应为 2，实际 %g", i, segLen(s))
		}
	}
}

func TestSolveResultMidpointQuarterTurn(t *testing.T) {
	one, _ := DefaultChain(1)
	three, _ := DefaultChain(3)
	chains := []Chain{
		one,
		three,
		{{A: 2, B: 2, C: 1, D: 1}},
		{{A: 3, B: 2, C: 1.5, D: 0.8}},
		{{A: 1.2, B: 0.9, C: 0.4, D: 0.6}, {A: 1, B: 1, C: .5, D: .5}, {A: 2, B: 1.5, C: 1, D: 0.3}},
		humpChain,
	}
	for i, chain := range chains {
		env := mustEnvelope(t, chain, math.Pi/2, DefaultSolveOptions())
		res := SolveResult(chain, env.Mid(), math.Pi/2)
		if res.Code != CodeSuccess {
			t.Fatalf("第 %d 条链中点伸展应可解，实际 %s", i, res.Code)
		}
		if len(res.Segments) != 2*len(chain) {
			t.Fatalf("第 %d 条链期望 %d 根杆件，实际 %d", i, 2*len(chain), len(res.Segments))
		}
	}
}

func TestSolveRejectsOneULPOutside(t *testing.T) {
	chain, _ := DefaultChain(2)
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 2.5, opts)

	for _, r := range []float64{
		math.Nextafter(env.MaxReach, math.Inf(1)),
		math.Nextafter(env.MinReach, math.Inf(-1)),
		env.MaxReach * 2,
		math.NaN(),
		math.Inf(1),
	} {
		sol, err := Solve(chain, Actuation{Radius: r, Angle: 2.5}, opts)
		if !errors.Is(err, ErrUnreachablePose) || sol != nil {
			t.Fatalf("radius=%g 期望 UnreachablePose，实际 %v", r, err)
		}
	}
}

func TestSolveRejectsBadAngle(t *testing.T) {
	chain, _ := DefaultChain(1)
	for _, a := range []float64{0, -1, math.Pi, 4, math.NaN()} {
		if _, err := Solve(chain, Actuation{Radius: 0.5, Angle: a}, DefaultSolveOptions()); !errors.Is(err, ErrUnreachablePose) {
			t.Fatalf("angle=%g 期望 UnreachablePose，实际 %v", a, err)
		}
	}
	opts := DefaultSolveOptions()
	opts.MinAngle = 1.5
	if _, err := Solve(chain, Actuation{Radius: 0.5, Angle: 1.0}, opts); !errors.Is(err, ErrUnreachablePose) {
		t.Fatalf("收拢角不小于张开角时应不可达，实际 %v", err)
	}
}

func TestSolveInvalidChainNoGeometry(t *testing.T) {
	res := SolveResult(Chain{{A: 1, B: 1, C: 2, D: 0.5}}, 0.5, 1.0)
	if res.Code != CodeInvalidChain || res.Segments != nil || res.OK() {
		t.Fatalf("非法链条应返回 InvalidChain 且无几何: %+v", res)
	}
	res = SolveResult(nil, 0.5, 1.0)
	if res.Code != CodeInvalidChain {
		t.Fatalf("空链条应返回 InvalidChain: %+v", res)
	}
	chain, _ := DefaultChain(2)
	res = SolveResult(chain, 100, 1.0)
	if res.Code != CodeUnreachablePose || res.Segments != nil {
		t.Fatalf("不可达时不应返回几何: %+v", res)
	}
}

func TestSolveDivergenceOnIterationCap(t *testing.T) {
	chain, _ := DefaultChain(1)
	opts := DefaultSolveOptions()
	opts.MaxIterations = 1
	env := mustEnvelope(t, chain, 2.0, opts)
	_, err := Solve(chain, Actuation{Radius: env.Mid(), Angle: 2.0}, opts)
	if !errors.Is(err, ErrNumericDivergence) || CodeOf(err) != CodeNumericDivergence {
		t.Fatalf("迭代上限为 1 时期望 NumericDivergence，实际 %v", err)
	}
}

func TestSolveIdempotentAndDoesNotMutate(t *testing.T) {
	chain := Chain{{A: 2, B: 2, C: 1, D: 1}, {A: 1.5, B: 1.2, C: 0.9, D: 0.6}, {A: 1, B: 1, C: 0.5, D: 0.5}}
	before := chain.Clone()
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 1.8, opts)
	in := Actuation{Radius: env.Mid(), Angle: 1.8}

	first, err := Solve(chain, in, opts)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	second, err := Solve(chain, in, opts)
	if err != nil {
		t.Fatalf("二次求解失败: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("相同输入应得到逐位相同的结果")
	}
	if !reflect.DeepEqual(chain, before) {
		t.Fatalf("求解不应修改输入链条")
	}
}

func TestSwappedSymmetricUnitsKeepDirections(t *testing.T) {
	small := Dimension{A: 2, B: 2, C: 1, D: 1}
	large := Dimension{A: 3, B: 3, C: 1.5, D: 1.5}
	opts := DefaultSolveOptions()
	p, err := PoseAt(Chain{small, large}, 1.1, opts)
	if err != nil {
		t.Fatalf("PoseAt 失败: %v", err)
	}
	q, err := PoseAt(Chain{large, small}, 1.1, opts)
	if err != nil {
		t.Fatalf("PoseAt 失败: %v", err)
	}
	dir := func(s Segment) (float64, float64) {
		l := segLen(s)
		return (s.X2 - s.X1) / l, (s.Y2 - s.Y1) / l
	}
	// p 的第 0 个单元对应 q 的第 1 个单元。
	for k := 0; k < 2; k++ {
		px, py := dir(p.Segments[k])
		qx, qy := dir(q.Segments[2+k])
		if !near(px, qx) || !near(py, qy) {
			t.Fatalf("交换后第 %d 根杆件方向改变: (%g,%g) vs (%g,%g)", k, px, py, qx, qy)
		}
	}
}

func TestAngleModes(t *testing.T) {
	chain, _ := DefaultChain(4)
	uni := DefaultSolveOptions()
	inh := DefaultSolveOptions()
	inh.Mode = ModeInherited

	pu, err := PoseAt(chain, 1.3, uni)
	if err != nil {
		t.Fatalf("uniform 失败: %v", err)
	}
	pi, err := PoseAt(chain, 1.3, inh)
	if err != nil {
		t.Fatalf("inherited 失败: %v", err)
	}
	if !near(pu.Reach, pi.Reach) {
		t.Fatalf("顶边等于底边的链条两种模式应一致: %g vs %g", pu.Reach, pi.Reach)
	}

	// a = 1.5c：顶边跨度为底边一半，inherited 模式下后续单元更收拢。
	uneven := Chain{{A: 1.5, B: 1.5, C: 1, D: 1}, {A: 1.5, B: 1.5, C: 1, D: 1}}
	pu, err = PoseAt(uneven, 1.3, uni)
	if err != nil {
		t.Fatalf("uniform 失败: %v", err)
	}
	pi, err = PoseAt(uneven, 1.3, inh)
	if err != nil {
		t.Fatalf("inherited 失败: %v", err)
	}
	if near(pu.Reach, pi.Reach) {
		t.Fatalf("两种模式在该链条上应当不同")
	}
	if !near(pi.Units[1].Span, pi.Units[0].Span/2) {
		t.Fatalf("inherited 模式下第二级跨度应为第一级一半: %g vs %g", pi.Units[1].Span, pi.Units[0].Span)
	}
}

func TestInheritedModeUnreachableWhenStageCannotClose(t *testing.T) {
	chain := Chain{{A: 1, B: 1, C: 0.5, D: 0.5}, {A: 4, B: 4, C: 0.1, D: 0.1}}
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 2.0, opts)
	if _, err := Solve(chain, Actuation{Radius: env.Mid(), Angle: 2.0}, opts); err != nil {
		t.Fatalf("uniform 模式应可解: %v", err)
	}

	opts.Mode = ModeInherited
	_, err := Solve(chain, Actuation{Radius: env.Mid(), Angle: 2.0}, opts)
	if !errors.Is(err, ErrUnreachablePose) {
		t.Fatalf("inherited 模式下第二级无法闭合，期望 UnreachablePose，实际 %v", err)
	}
}

func TestSweepTracesEnvelope(t *testing.T) {
	chain, _ := DefaultChain(2)
	opts := DefaultSolveOptions()
	env := mustEnvelope(t, chain, 2.5, opts)
	points, err := Sweep(chain, 2.5, 4, opts)
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("期望 5 个采样，实际 %d", len(points))
	}
	if points[0].Radius != env.MinReach || points[4].Radius != env.MaxReach {
		t.Fatalf("扫描端点应与包络一致: %+v", points)
	}
	for i, p := range points {
		if p.Code != CodeSuccess {
			t.Fatalf("第 %d 个采样失败: %s", i, p.Code)
		}
		if reach := math.Hypot(p.Tip.X, p.Tip.Y); math.Abs(reach-p.Radius) > 1e-8 {
			t.Fatalf("第 %d 个采样末端伸展 %g 与目标 %g 不符", i, reach, p.Radius)
		}
	}

	if _, err := Sweep(chain, 0, 4, opts); !errors.Is(err, ErrUnreachablePose) {
		t.Fatalf("非法张开角的扫描应失败，实际 %v", err)
	}
}

func TestSolutionPathAndStrutLength(t *testing.T) {
	chain := Chain{{A: 2, B: 2, C: 1, D: 1}, {A: 3, B: 1, C: 1.5, D: 0.5}}
	sol, err := PoseAt(chain, 1.0, DefaultSolveOptions())
	if err != nil {
		t.Fatalf("PoseAt 失败: %v", err)
	}
	if got := sol.StrutLength(); !near(got, 2+2+3+1) {
		t.Fatalf("杆件总长期望 8，实际 %g", got)
	}
	if sol.Path().Empty() {
		t.Fatalf("路径不应为空")
	}
	var nilSol *Solution
	if nilSol.StrutLength() != 0 || !nilSol.Path().Empty() {
		t.Fatalf("nil Solution 应返回空结果")
	}
}

func TestSolveLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	chain, _ := DefaultChain(1)
	env := mustEnvelope(t, chain, 1.0, DefaultSolveOptions())
	if _, err := Solve(chain, Actuation{Radius: env.Mid(), Angle: 1.0}, DefaultSolveOptions()); err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	if !strings.Contains(buf.String(), "iterations=") {
		t.Fatalf("期望输出调试日志，实际 %q", buf.String())
	}
}
