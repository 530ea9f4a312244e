package report

import (
	"encoding/json"
	"fmt"

	"github.com/ByLCY/linkage/record"
	"github.com/ByLCY/linkage/scissor"
)

// JSONRenderer 输出机器可读的报告。
type JSONRenderer struct {
	Indent bool
}

type jsonReport struct {
	Name      string               `json:"name,omitempty"`
	Meta      scissor.DocumentMeta `json:"meta"`
	Unit      string               `json:"unit,omitempty"`
	Code      scissor.Code         `json:"code"`
	Status    string               `json:"status"`
	Error     string               `json:"error,omitempty"`
	Chain     scissor.Chain        `json:"chain,omitempty"`
	Actuation scissor.Actuation    `json:"actuation"`
	Mode      scissor.AngleMode    `json:"mode"`
	Envelope  *scissor.Envelope    `json:"envelope,omitempty"`
	Solution  *scissor.Solution    `json:"solution,omitempty"`
	Sweep     []scissor.SweepPoint `json:"sweep,omitempty"`
}

var _ Renderer = JSONRenderer{}

func (j JSONRenderer) Render(rep *Report) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("报告为空")
	}
	code := rep.Code()
	out := jsonReport{
		Name:      rep.Name,
		Meta:      rep.Meta,
		Unit:      rep.Unit.String(),
		Code:      code,
		Status:    code.String(),
		Chain:     rep.Chain,
		Actuation: rep.Actuation,
		Mode:      rep.Mode,
		Envelope:  rep.Envelope,
		Solution:  rep.Solution,
		Sweep:     rep.Sweep,
	}
	if rep.Err != nil {
		out.Error = rep.Err.Error()
		out.Solution = nil
	}
	if j.Indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// RecordRenderer 输出二进制结果记录（仅状态码与杆件）。
type RecordRenderer struct{}

var _ Renderer = RecordRenderer{}

func (RecordRenderer) Render(rep *Report) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("报告为空")
	}
	return record.MarshalResult(rep.Result()), nil
}
