package scissor

import (
	"math"

	"github.com/tdewolff/canvas"
)

// Path 把所有杆件转为 canvas 路径，每根杆件一段 MoveTo/LineTo。
func (s *Solution) Path() *canvas.Path {
	p := &canvas.Path{}
	if s == nil {
		return p
	}
	for _, seg := range s.Segments {
		p.MoveTo(seg.X1, seg.Y1)
		p.LineTo(seg.X2, seg.Y2)
	}
	return p
}

// StrutLength 返回所有杆件长度之和。
func (s *Solution) StrutLength() float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, seg := range s.Segments {
		total += seg.Length()
	}
	return total
}

// Length 返回杆件长度。
func (s Segment) Length() float64 {
	return math.Hypot(s.X2-s.X1, s.Y2-s.Y1)
}
