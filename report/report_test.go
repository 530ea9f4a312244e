package report_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/linkage/record"
	"github.com/ByLCY/linkage/report"
	"github.com/ByLCY/linkage/scissor"
)

func solvedReport(t *testing.T) *report.Report {
	t.Helper()
	chain, err := scissor.DefaultChain(2)
	require.NoError(t, err)
	env, err := scissor.ReachEnvelope(chain, 2.0, scissor.DefaultSolveOptions())
	require.NoError(t, err)
	job := &scissor.Job{
		Name:      "Lift",
		Meta:      scissor.DocumentMeta{Title: "Demo lift"},
		Unit:      scissor.UnitMM,
		Chain:     chain,
		Posed:     true,
		Actuation: scissor.Actuation{Radius: env.Mid(), Angle: 2.0},
		Options:   scissor.DefaultSolveOptions(),
	}
	sol, err := job.Solve()
	require.NoError(t, err)
	return report.New(job, sol, nil)
}

func TestMarkdownPlain(t *testing.T) {
	rep := solvedReport(t)
	out, err := report.MarkdownRenderer{}.Render(rep)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Demo lift"))
	assert.Contains(t, md, "status: **Success** (0)")
	assert.Contains(t, md, "## Units")
	assert.Contains(t, md, "## Segments")
	for _, row := range []string{"| 0 | a |", "| 0 | b |", "| 1 | a |", "| 1 | b |"} {
		assert.Contains(t, md, row)
	}
	assert.NotContains(t, md, "| 2 | a |")
	// DefaultChain(2) 的四根杆件均长 1。
	assert.Contains(t, md, "- struts: 4, total length 4mm")
}

func TestMarkdownFailure(t *testing.T) {
	chain, _ := scissor.DefaultChain(1)
	_, err := scissor.Solve(chain, scissor.Actuation{Radius: 10, Angle: 1}, scissor.DefaultSolveOptions())
	require.Error(t, err)

	rep := report.New(&scissor.Job{Name: "X", Chain: chain}, nil, err)
	assert.Equal(t, scissor.CodeUnreachablePose, rep.Code())
	md := report.Markdown(rep)
	assert.Contains(t, md, "UnreachablePose")
	assert.NotContains(t, md, "## Segments")
}

func TestMarkdownStyled(t *testing.T) {
	out, err := report.MarkdownRenderer{Styled: true, Width: 80}.Render(solvedReport(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Success")
}

func TestJSONRenderer(t *testing.T) {
	out, err := report.JSONRenderer{}.Render(solvedReport(t))
	require.NoError(t, err)

	var decoded struct {
		Code     int64  `json:"code"`
		Status   string `json:"status"`
		Mode     string `json:"mode"`
		Solution struct {
			Segments []scissor.Segment `json:"segments"`
		} `json:"solution"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, int64(0), decoded.Code)
	assert.Equal(t, "Success", decoded.Status)
	assert.Equal(t, "uniform", decoded.Mode)
	assert.Len(t, decoded.Solution.Segments, 4)
}

func TestRecordRenderer(t *testing.T) {
	out, err := report.RecordRenderer{}.Render(solvedReport(t))
	require.NoError(t, err)
	res, err := record.UnmarshalResult(out)
	require.NoError(t, err)
	assert.Equal(t, scissor.CodeSuccess, res.Code)
	assert.Len(t, res.Segments, 4)

	failed := report.New(nil, nil, scissor.ErrInvalidChain)
	out, err = report.RecordRenderer{}.Render(failed)
	require.NoError(t, err)
	res, err = record.UnmarshalResult(out)
	require.NoError(t, err)
	assert.Equal(t, scissor.CodeInvalidChain, res.Code)
	assert.Empty(t, res.Segments)
}

func TestResultWithoutSolution(t *testing.T) {
	chain, _ := scissor.DefaultChain(2)
	env, err := scissor.ReachEnvelope(chain, 2.0, scissor.DefaultSolveOptions())
	require.NoError(t, err)

	rep := report.New(&scissor.Job{Name: "Lift", Chain: chain}, nil, nil)
	rep.Envelope = &env
	assert.Equal(t, scissor.CodeSuccess, rep.Code())
	res := rep.Result()
	assert.Equal(t, scissor.CodeSuccess, res.Code)
	assert.Empty(t, res.Segments)

	out, err := report.RecordRenderer{}.Render(rep)
	require.NoError(t, err)
	decoded, err := record.UnmarshalResult(out)
	require.NoError(t, err)
	assert.Equal(t, scissor.CodeSuccess, decoded.Code)

	empty := report.New(nil, nil, nil)
	assert.Equal(t, scissor.CodeNumericDivergence, empty.Result().Code)
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"", "markdown", "json", "record"} {
		r, err := report.ForFormat(f, nil)
		require.NoError(t, err, f)
		assert.NotNil(t, r)
	}
	_, err := report.ForFormat("pdf", nil)
	assert.Error(t, err)
}
