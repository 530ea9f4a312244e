package scissor

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/linkage/dsl"
)

func buildFromText(t *testing.T, text string, data any, opts BuildOptions) (*Job, error) {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	return Build(doc, data, opts)
}

const liftDSL = `
doc Lift v1 {
  meta {
    title: "Demo lift"
    tags: ["scissor", "demo"]
  }
  templates {
    unit Std { a: 100mm  b: 100mm  c: 50mm  d: 50mm }
  }
  chain {
    unit a 12cm b 12cm c 6cm d 6cm
    repeat ${stages} {
      unit Std
    }
    unit Std c ${short.c}
  }
  pose {
    radius: ${target.radius}
    angle: 120deg
    mode: inherited
    max-iterations: 80
  }
}
`

func TestBuildExpandsTemplatesAndUnits(t *testing.T) {
	data := map[string]any{
		"stages": 2,
		"short":  map[string]any{"c": "4cm"},
		"target": map[string]any{"radius": 0.15},
	}
	job, err := buildFromText(t, liftDSL, data, BuildOptions{})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if job.Name != "Lift" || job.Meta.Title != "Demo lift" || len(job.Meta.Tags) != 2 {
		t.Fatalf("元数据错误: %+v", job)
	}
	if job.Unit != UnitMM {
		t.Fatalf("带单位的文档应统一为毫米，实际 %s", job.Unit)
	}
	want := Chain{
		{A: 120, B: 120, C: 60, D: 60},
		{A: 100, B: 100, C: 50, D: 50},
		{A: 100, B: 100, C: 50, D: 50},
		{A: 100, B: 100, C: 40, D: 50},
	}
	if len(job.Chain) != len(want) {
		t.Fatalf("期望 %d 个单元，实际 %d", len(want), len(job.Chain))
	}
	for i := range want {
		if job.Chain[i] != want[i] {
			t.Fatalf("第 %d 个单元期望 %+v，实际 %+v", i, want[i], job.Chain[i])
		}
	}
	if !job.Posed || job.Actuation.Radius != 0.15 {
		t.Fatalf("pose 解析错误: %+v", job.Actuation)
	}
	if math.Abs(job.Actuation.Angle-2*math.Pi/3) > 1e-12 {
		t.Fatalf("120deg 期望 2π/3，实际 %g", job.Actuation.Angle)
	}
	if job.Options.Mode != ModeInherited || job.Options.MaxIterations != 80 {
		t.Fatalf("求解配置错误: %+v", job.Options)
	}
}

func TestBuildTargetUnit(t *testing.T) {
	text := `doc X v1 {
  chain { unit a 1in b 1in c 0.5in d 0.5in }
  pose { radius: 10mm; angle: 1.0 }
}`
	job, err := buildFromText(t, text, nil, BuildOptions{Unit: UnitIN})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if job.Chain[0].A != 1 || job.Chain[0].C != 0.5 {
		t.Fatalf("英寸应原样保留: %+v", job.Chain[0])
	}
	if math.Abs(job.Actuation.Radius-10/25.4) > 1e-12 {
		t.Fatalf("10mm 转英寸错误: %g", job.Actuation.Radius)
	}

	plain := `doc X v1 { chain { unit a 1 b 1 c .5 d .5 } }`
	job, err = buildFromText(t, plain, nil, BuildOptions{})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if job.Unit != UnitNone || job.Chain[0] != defaultUnit || job.Posed {
		t.Fatalf("无单位文档应保留原始数值且无 pose: %+v", job)
	}
	if _, err := job.Solve(); err == nil {
		t.Fatalf("无 pose 的任务不能求解")
	}
}

func TestBuildSolvesEndToEnd(t *testing.T) {
	text := `doc X v1 {
  chain {
    repeat 3 { unit a 1 b 1 c 0.5 d 0.5 }
  }
  pose { radius: 1.2; angle: 2.0 }
}`
	job, err := buildFromText(t, text, nil, BuildOptions{})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	sol, err := job.Solve()
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	if math.Abs(sol.Reach-1.2) > 1e-8 {
		t.Fatalf("伸展期望 1.2，实际 %g", sol.Reach)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"missing chain":    `doc X v1 { meta { title: "x" } }`,
		"unknown template": `doc X v1 { chain { unit Nope } }`,
		"missing field":    `doc X v1 { chain { unit a 1 b 1 c 0.5 } }`,
		"unknown field":    `doc X v1 { chain { unit a 1 b 1 c 0.5 e 0.5 } }`,
		"unknown command":  `doc X v1 { chain { link a 1 } }`,
		"bad repeat":       `doc X v1 { chain { repeat 1.5 { unit a 1 b 1 c .5 d .5 } } }`,
		"unbound param":    `doc X v1 { chain { unit a ${x} b 1 c .5 d .5 } }`,
		"half pose":        `doc X v1 { chain { unit a 1 b 1 c .5 d .5 } pose { angle: 1.0 } }`,
		"bad mode":         `doc X v1 { chain { unit a 1 b 1 c .5 d .5 } pose { radius: 1; angle: 1; mode: sideways } }`,
		"dup template":     `doc X v1 { templates { unit S a 1 b 1 c 1 d 1; unit S a 1 b 1 c 1 d 1 } chain { unit S } }`,
		"too many":         `doc X v1 { chain { repeat 1000 { repeat 1000 { unit a 1 b 1 c .5 d .5 } } } }`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := buildFromText(t, text, nil, BuildOptions{}); err == nil {
				t.Fatalf("期望构建失败")
			}
		})
	}
}

func TestBuildValidatesChain(t *testing.T) {
	_, err := buildFromText(t, `doc X v1 { chain { unit a 1 b 1 c 2 d .5 } }`, nil, BuildOptions{})
	if !errors.Is(err, ErrInvalidChain) {
		t.Fatalf("c>a 应返回 ErrInvalidChain，实际 %v", err)
	}
}
