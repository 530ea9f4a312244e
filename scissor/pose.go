package scissor

import (
	"math"

	"github.com/tdewolff/canvas"
)

// cosSlack 容许继承跨度因浮点误差略微越过三角形可行边界。
const cosSlack = 1e-9

// unitFrame 是单元在全局坐标系中的姿态。
type unitFrame struct {
	a0, b0, pivot, a1, b1 canvas.Point
	span, opening         float64
}

type chainPose struct {
	alpha float64
	units []unitFrame
	tip   canvas.Point
	reach float64
}

// baseSpan 由余弦定理计算张开角 alpha 下的底边长度（铰点处夹角为 π-alpha）。
func baseSpan(d Dimension, alpha float64) float64 {
	s2 := d.C*d.C + d.D*d.D + 2*d.C*d.D*math.Cos(alpha)
	if s2 < 0 {
		return 0
	}
	return math.Sqrt(s2)
}

// cosIncluded 返回边 p、q 夹角的余弦，opposite 为对边。
func cosIncluded(p, q, opposite float64) float64 {
	return (p*p + q*q - opposite*opposite) / (2 * p * q)
}

func clampCos(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v), v > 1+cosSlack, v < -1-cosSlack:
		return 0, false
	case v > 1:
		return 1, true
	case v < -1:
		return -1, true
	}
	return v, true
}

// poseUnit 以 a0 为 A 杆起点、dir 为底边单位方向放置单元，铰点位于底边左侧。
func poseUnit(d Dimension, a0, dir canvas.Point, span float64) (unitFrame, bool) {
	if !(span > 0) {
		return unitFrame{}, false
	}
	cb, ok := clampCos(cosIncluded(d.C, span, d.D))
	if !ok {
		return unitFrame{}, false
	}
	sb := math.Sqrt(1 - cb*cb)
	strut := canvas.Point{X: dir.X*cb - dir.Y*sb, Y: dir.X*sb + dir.Y*cb}

	pivot := a0.Add(strut.Mul(d.C))
	b0 := a0.Add(dir.Mul(span))
	u := unitFrame{
		a0:    a0,
		b0:    b0,
		pivot: pivot,
		a1:    a0.Add(strut.Mul(d.A)),
		b1:    b0.Add(pivot.Sub(b0).Mul(d.B / d.D)),
		span:  span,
	}
	cg, _ := clampCos(cosIncluded(d.C, d.D, span))
	u.opening = math.Pi - math.Acos(cg)
	return u, true
}

// poseChain 在张开角 alpha 下逐级放置单元。失败时返回无法闭合的单元索引。
//
// 下一级的 A 杆起点为上一级 B 杆末端，底边方向为上一级 B 末端指向 A 末端。
func poseChain(chain Chain, alpha float64, mode AngleMode) (*chainPose, int) {
	units := make([]unitFrame, len(chain))
	a0 := canvas.Point{}
	dir := canvas.Point{X: 1}
	for i, d := range chain {
		span := baseSpan(d, alpha)
		if i > 0 {
			prev := units[i-1]
			top := prev.a1.Sub(prev.b1)
			l := top.Length()
			if l > 0 {
				dir = top.Mul(1 / l)
			}
			if mode == ModeInherited {
				span = l
			}
			a0 = prev.b1
		}
		u, ok := poseUnit(d, a0, dir, span)
		if !ok {
			return nil, i
		}
		units[i] = u
	}
	tip := units[len(units)-1].b1
	return &chainPose{alpha: alpha, units: units, tip: tip, reach: tip.Length()}, -1
}

func (p *chainPose) segments() []Segment {
	out := make([]Segment, 0, 2*len(p.units))
	for _, u := range p.units {
		out = append(out,
			Segment{X1: u.a0.X, Y1: u.a0.Y, X2: u.a1.X, Y2: u.a1.Y},
			Segment{X1: u.b0.X, Y1: u.b0.Y, X2: u.b1.X, Y2: u.b1.Y},
		)
	}
	return out
}

func (p *chainPose) unitPoses() []UnitPose {
	out := make([]UnitPose, len(p.units))
	for i, u := range p.units {
		out[i] = UnitPose{
			AOrigin: pt(u.a0),
			BOrigin: pt(u.b0),
			Pivot:   pt(u.pivot),
			AEnd:    pt(u.a1),
			BEnd:    pt(u.b1),
			Span:    u.span,
			Opening: u.opening,
		}
	}
	return out
}

func pt(p canvas.Point) Point { return Point{X: p.X, Y: p.Y} }
