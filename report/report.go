package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/ByLCY/linkage/scissor"
)

// Renderer 将一次求解（或扫描）的报告输出为字节，例如 Markdown、JSON 或二进制记录。
type Renderer interface {
	Render(rep *Report) ([]byte, error)
}

// Report 汇总任务描述与求解结果。Solution 与 Err 至多一个非空。
type Report struct {
	Name      string
	Meta      scissor.DocumentMeta
	Unit      scissor.Unit
	Chain     scissor.Chain
	Actuation scissor.Actuation
	Mode      scissor.AngleMode
	Envelope  *scissor.Envelope
	Solution  *scissor.Solution
	Sweep     []scissor.SweepPoint
	Err       error
}

// New 由任务与求解结果构造报告。
func New(job *scissor.Job, sol *scissor.Solution, err error) *Report {
	rep := &Report{Solution: sol, Err: err}
	if job != nil {
		rep.Name = job.Name
		rep.Meta = job.Meta
		rep.Unit = job.Unit
		rep.Chain = job.Chain
		rep.Actuation = job.Actuation
		rep.Mode = job.Options.Mode
	}
	if sol != nil {
		env := sol.Envelope
		rep.Envelope = &env
	}
	return rep
}

// Code 返回报告对应的边界错误码。
func (r *Report) Code() scissor.Code {
	if r.Err != nil {
		return scissor.CodeOf(r.Err)
	}
	if r.Solution == nil && r.Sweep == nil && r.Envelope == nil {
		return scissor.CodeNumericDivergence
	}
	return scissor.CodeSuccess
}

// Result 返回扁平结果，失败时不带几何。只有包络或扫描的报告成功但没有杆件。
func (r *Report) Result() scissor.Result {
	if code := r.Code(); code != scissor.CodeSuccess {
		return scissor.Result{Code: code}
	}
	if r.Solution == nil {
		return scissor.Result{Code: scissor.CodeSuccess}
	}
	return r.Solution.Result()
}

// ForFormat 根据格式名选择渲染器；markdown 会探测 out 是否为终端。
func ForFormat(format string, out *os.File) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return NewMarkdownRenderer(out), nil
	case "json":
		return JSONRenderer{Indent: true}, nil
	case "record", "bin", "binary":
		return RecordRenderer{}, nil
	default:
		return nil, fmt.Errorf("未知输出格式 %q", format)
	}
}
