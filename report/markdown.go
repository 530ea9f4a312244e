package report

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/ByLCY/linkage/scissor"
)

const defaultWrap = 100

// MarkdownRenderer 以 Markdown 表格输出报告；Styled 为 true 时经 glamour 渲染为终端文本。
type MarkdownRenderer struct {
	Styled bool
	Width  int
}

// NewMarkdownRenderer 在 out 为终端时启用样式，并按终端宽度换行。
func NewMarkdownRenderer(out *os.File) MarkdownRenderer {
	r := MarkdownRenderer{Width: defaultWrap}
	if out == nil {
		return r
	}
	fd := int(out.Fd())
	if !term.IsTerminal(fd) {
		return r
	}
	r.Styled = true
	if w, _, err := term.GetSize(fd); err == nil && w > 20 {
		r.Width = w
	}
	return r
}

var _ Renderer = MarkdownRenderer{}

func (m MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("报告为空")
	}
	md := Markdown(rep)
	if !m.Styled {
		return []byte(md), nil
	}
	width := m.Width
	if width <= 0 {
		width = defaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("初始化 Markdown 渲染器失败: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return nil, fmt.Errorf("渲染 Markdown 失败: %w", err)
	}
	return []byte(statusLine(rep) + out), nil
}

// statusLine 以终端颜色标出结果状态。
func statusLine(rep *Report) string {
	p := termenv.ColorProfile()
	code := rep.Code()
	color := "#22c55e"
	if code != scissor.CodeSuccess {
		color = "#ef4444"
	}
	s := termenv.String(fmt.Sprintf(" %s (%d) ", code, int64(code))).Foreground(p.Color(color)).Bold()
	return s.String() + "\n"
}

// Markdown 生成报告的 Markdown 文本。
func Markdown(rep *Report) string {
	var b strings.Builder
	title := rep.Meta.Title
	if title == "" {
		title = rep.Name
	}
	if title == "" {
		title = "scissor chain"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if rep.Meta.Notes != "" {
		fmt.Fprintf(&b, "%s\n\n", rep.Meta.Notes)
	}

	unit := rep.Unit.String()
	code := rep.Code()
	fmt.Fprintf(&b, "- status: **%s** (%d)\n", code, int64(code))
	if rep.Err != nil {
		fmt.Fprintf(&b, "- error: `%s`\n", rep.Err)
	}
	if rep.Sweep == nil {
		fmt.Fprintf(&b, "- target: radius %s, angle %s, mode %s\n",
			withUnit(rep.Actuation.Radius, unit), degrees(rep.Actuation.Angle), rep.Mode)
	}
	if rep.Envelope != nil {
		fmt.Fprintf(&b, "- envelope: [%s, %s] for opening %s .. %s\n",
			withUnit(rep.Envelope.MinReach, unit), withUnit(rep.Envelope.MaxReach, unit),
			degrees(rep.Envelope.ClosedAngle), degrees(rep.Envelope.OpenAngle))
	}
	if sol := rep.Solution; sol != nil {
		fmt.Fprintf(&b, "- solved: opening %s, reach %s, tip (%s, %s), %d iterations\n",
			degrees(sol.Angle), withUnit(sol.Reach, unit), num(sol.Tip.X), num(sol.Tip.Y), sol.Iterations)
		fmt.Fprintf(&b, "- struts: %d, total length %s\n", len(sol.Segments), withUnit(sol.StrutLength(), unit))
	}
	b.WriteString("\n")

	if len(rep.Chain) > 0 {
		b.WriteString("## Units\n\n| # | a | b | c | d |")
		if rep.Solution != nil {
			b.WriteString(" span | opening |")
		}
		b.WriteString("\n|---|---|---|---|---|")
		if rep.Solution != nil {
			b.WriteString("---|---|")
		}
		b.WriteString("\n")
		for i, d := range rep.Chain {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |", i, num(d.A), num(d.B), num(d.C), num(d.D))
			if rep.Solution != nil && i < len(rep.Solution.Units) {
				u := rep.Solution.Units[i]
				fmt.Fprintf(&b, " %s | %s |", num(u.Span), degrees(u.Opening))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if sol := rep.Solution; sol != nil && len(sol.Segments) > 0 {
		b.WriteString("## Segments\n\n| # | strut | x1 | y1 | x2 | y2 |\n|---|---|---|---|---|---|\n")
		for i, s := range sol.Segments {
			strut := "a"
			if i%2 == 1 {
				strut = "b"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n", i/2, strut, num(s.X1), num(s.Y1), num(s.X2), num(s.Y2))
		}
		b.WriteString("\n")
	}

	if len(rep.Sweep) > 0 {
		b.WriteString("## Sweep\n\n| radius | opening | tip x | tip y | status |\n|---|---|---|---|---|\n")
		for _, p := range rep.Sweep {
			if p.Code != scissor.CodeSuccess {
				fmt.Fprintf(&b, "| %s | - | - | - | %s |\n", num(p.Radius), p.Code)
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", num(p.Radius), degrees(p.Angle), num(p.Tip.X), num(p.Tip.Y), p.Code)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func num(v float64) string {
	if math.Abs(v) < 5e-13 {
		v = 0
	}
	return fmt.Sprintf("%.6g", v)
}

func withUnit(v float64, unit string) string {
	return num(v) + unit
}

func degrees(rad float64) string {
	return fmt.Sprintf("%.4g°", rad*180/math.Pi)
}
