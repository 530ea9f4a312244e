package scissor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/linkage/binding"
	"github.com/ByLCY/linkage/dsl"
)

// maxExpandedUnits 限制 repeat 展开后的单元总数。
const maxExpandedUnits = 1 << 16

// DocumentMeta 保存 meta 段中的描述信息。
type DocumentMeta struct {
	Title  string   `json:"title,omitempty"`
	Author string   `json:"author,omitempty"`
	Notes  string   `json:"notes,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Job 是从描述文件构建出的一次求解任务。
type Job struct {
	Name      string       `json:"name"`
	Version   string       `json:"version"`
	Meta      DocumentMeta `json:"meta"`
	Unit      Unit         `json:"unit"` // 链条与伸展使用的长度单位
	Chain     Chain        `json:"chain"`
	Posed     bool         `json:"posed"` // 文档是否给出了 radius 与 angle
	Actuation Actuation    `json:"actuation"`
	Options   SolveOptions `json:"-"`
}

// Solve 以任务自身的链条、驱动与配置求解。
func (j *Job) Solve() (*Solution, error) {
	if j == nil {
		return nil, fmt.Errorf("任务为空")
	}
	if !j.Posed {
		return nil, fmt.Errorf("文档 %s 缺少 pose 段（radius 与 angle）", j.Name)
	}
	return Solve(j.Chain, j.Actuation, j.Options)
}

type rawUnit struct {
	fields [4]*Length // a, b, c, d
}

var unitKeys = [...]string{"a", "b", "c", "d"}

func (r *rawUnit) set(key string, l Length) bool {
	for i, k := range unitKeys {
		if k == key {
			v := l
			r.fields[i] = &v
			return true
		}
	}
	return false
}

func (r rawUnit) merge(over rawUnit) rawUnit {
	for i, f := range over.fields {
		if f != nil {
			r.fields[i] = f
		}
	}
	return r
}

// buildContext 记录构建过程中的模板、绑定数据与单位使用情况。
type buildContext struct {
	data      any
	templates map[string]rawUnit
	hasUnit   bool
}

// Build 根据描述文件 AST 与绑定数据生成求解任务，并校验链条。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Job, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	ctx := &buildContext{data: data, templates: map[string]rawUnit{}}

	for _, section := range doc.Sections {
		if section.Templates == nil || section.Templates.Block == nil {
			continue
		}
		if err := ctx.collectTemplates(section.Templates.Block); err != nil {
			return nil, err
		}
	}

	chainSection := firstChain(doc)
	if chainSection == nil {
		return nil, fmt.Errorf("文档中缺少 chain 段落")
	}
	raws, err := ctx.expand(chainSection.Block, 0)
	if err != nil {
		return nil, err
	}

	pose, err := ctx.collectPose(doc, opts.Solve)
	if err != nil {
		return nil, err
	}

	target := opts.Unit
	if target == UnitNone && ctx.hasUnit {
		target = UnitMM
	}

	chain := make(Chain, len(raws))
	for i, r := range raws {
		var vals [4]float64
		for k, f := range r.fields {
			if f == nil {
				return nil, fmt.Errorf("第 %d 个单元缺少 %s", i, unitKeys[k])
			}
			vals[k] = f.To(target)
		}
		chain[i] = Dimension{A: vals[0], B: vals[1], C: vals[2], D: vals[3]}
	}
	if err := ValidateChain(chain); err != nil {
		return nil, fmt.Errorf("构建链条失败: %w", err)
	}

	job := &Job{
		Name:    doc.Name,
		Version: doc.Version,
		Meta:    collectMeta(doc),
		Unit:    target,
		Chain:   chain,
		Options: pose.options,
	}
	if pose.radius != nil && pose.angle != nil {
		job.Posed = true
		job.Actuation = Actuation{Radius: pose.radius.To(target), Angle: *pose.angle}
	}
	Logger().Debug("scissor: 构建任务", "name", job.Name, "units", len(chain), "unit", target.String(), "posed", job.Posed)
	return job, nil
}

func (ctx *buildContext) collectTemplates(block *dsl.Block) error {
	for _, stmt := range block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			continue
		}
		if cmd.Name != "unit" {
			return fmt.Errorf("%s: templates 段只允许 unit，得到 %q", cmd.Pos, cmd.Name)
		}
		if len(cmd.Args) == 0 || cmd.Args[0].Type != "Ident" {
			return fmt.Errorf("%s: 模板单元缺少名称", cmd.Pos)
		}
		name := cmd.Args[0].Value
		if _, dup := ctx.templates[name]; dup {
			return fmt.Errorf("%s: 模板 %s 重复定义", cmd.Pos, name)
		}
		r, err := ctx.parseUnitBody(cmd, cmd.Args[1:])
		if err != nil {
			return err
		}
		ctx.templates[name] = r
	}
	return nil
}

// expand 按顺序展开 chain 块中的 unit 与 repeat 指令。
func (ctx *buildContext) expand(block *dsl.Block, total int) ([]rawUnit, error) {
	if block == nil {
		return nil, nil
	}
	var out []rawUnit
	for _, stmt := range block.Statements {
		cmd := stmt.Command
		if cmd == nil {
			return nil, fmt.Errorf("chain 段不支持赋值 %q", stmt.Assignment.Key)
		}
		switch cmd.Name {
		case "unit":
			r, err := ctx.parseUnit(cmd)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		case "repeat":
			if len(cmd.Args) != 1 || cmd.Block == nil {
				return nil, fmt.Errorf("%s: repeat 需要次数与代码块", cmd.Pos)
			}
			n, err := ctx.count(cmd.Args[0])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
			}
			body, err := ctx.expand(cmd.Block, total+len(out))
			if err != nil {
				return nil, err
			}
			if len(body) > 0 && n > (maxExpandedUnits-total-len(out))/len(body) {
				return nil, fmt.Errorf("%s: 展开后单元数超过上限 %d", cmd.Pos, maxExpandedUnits)
			}
			for i := 0; i < n; i++ {
				out = append(out, body...)
			}
		default:
			return nil, fmt.Errorf("%s: 未知指令 %q", cmd.Pos, cmd.Name)
		}
		if total+len(out) > maxExpandedUnits {
			return nil, fmt.Errorf("%s: 展开后单元数超过上限 %d", cmd.Pos, maxExpandedUnits)
		}
	}
	return out, nil
}

// parseUnit 解析 `unit [模板] [key value]... [{ key: value }]`。
// 参数个数为奇数时首个标识符视为模板名。
func (ctx *buildContext) parseUnit(cmd *dsl.Command) (rawUnit, error) {
	args := cmd.Args
	var base rawUnit
	if len(args)%2 == 1 {
		if args[0].Type != "Ident" {
			return rawUnit{}, fmt.Errorf("%s: unit 参数不成对", cmd.Pos)
		}
		tpl, ok := ctx.templates[args[0].Value]
		if !ok {
			return rawUnit{}, fmt.Errorf("%s: 未定义的模板 %s", cmd.Pos, args[0].Value)
		}
		base = tpl
		args = args[1:]
	}
	over, err := ctx.parseUnitBody(cmd, args)
	if err != nil {
		return rawUnit{}, err
	}
	return base.merge(over), nil
}

func (ctx *buildContext) parseUnitBody(cmd *dsl.Command, args []*dsl.Lexeme) (rawUnit, error) {
	var r rawUnit
	if len(args)%2 != 0 {
		return r, fmt.Errorf("%s: unit 参数不成对", cmd.Pos)
	}
	for i := 0; i < len(args); i += 2 {
		key := strings.ToLower(args[i].Value)
		l, err := ctx.length(args[i+1].Value)
		if err != nil {
			return r, fmt.Errorf("%s: %s: %w", cmd.Pos, key, err)
		}
		if !r.set(key, l) {
			return r, fmt.Errorf("%s: 未知单元字段 %q", cmd.Pos, args[i].Value)
		}
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			as := stmt.Assignment
			if as == nil {
				return r, fmt.Errorf("%s: unit 块只允许赋值", cmd.Pos)
			}
			key := strings.ToLower(as.Key)
			l, err := ctx.length(as.Value.Literal())
			if err != nil {
				return r, fmt.Errorf("%s: %s: %w", cmd.Pos, key, err)
			}
			if !r.set(key, l) {
				return r, fmt.Errorf("%s: 未知单元字段 %q", cmd.Pos, as.Key)
			}
		}
	}
	return r, nil
}

// length 解析长度字面量，先解析 ${} 参数。
func (ctx *buildContext) length(text string) (Length, error) {
	v, err := ctx.resolve(text)
	if err != nil {
		return Length{}, err
	}
	var l Length
	switch val := v.(type) {
	case string:
		l, err = ParseLength(val)
		if err != nil {
			return Length{}, err
		}
	default:
		f, ok := toFloat(val)
		if !ok {
			return Length{}, fmt.Errorf("无法将 %v 作为长度", v)
		}
		l = Length{Value: f}
	}
	if l.Unit != UnitNone {
		ctx.hasUnit = true
	}
	return l, nil
}

func (ctx *buildContext) angle(text string) (float64, error) {
	v, err := ctx.resolve(text)
	if err != nil {
		return 0, err
	}
	if s, ok := v.(string); ok {
		return ParseAngle(s)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("无法将 %v 作为角度", v)
	}
	return f, nil
}

func (ctx *buildContext) number(text string) (float64, error) {
	v, err := ctx.resolve(text)
	if err != nil {
		return 0, err
	}
	if s, ok := v.(string); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("无法将 %v 作为数值", v)
	}
	return f, nil
}

func (ctx *buildContext) count(arg *dsl.Lexeme) (int, error) {
	f, err := ctx.number(arg.Value)
	if err != nil {
		return 0, fmt.Errorf("repeat 次数: %w", err)
	}
	if f < 0 || f != math.Trunc(f) || f > maxExpandedUnits {
		return 0, fmt.Errorf("repeat 次数必须为非负整数，得到 %g", f)
	}
	return int(f), nil
}

func (ctx *buildContext) resolve(text string) (any, error) {
	if !binding.HasPlaceholder(text) {
		return text, nil
	}
	return binding.Resolve(text, ctx.data)
}

type poseSpec struct {
	radius  *Length
	angle   *float64
	options SolveOptions
}

func (ctx *buildContext) collectPose(doc *dsl.Document, defaults SolveOptions) (poseSpec, error) {
	spec := poseSpec{options: defaults}
	for _, section := range doc.Sections {
		if section.Pose == nil || section.Pose.Block == nil {
			continue
		}
		for _, stmt := range section.Pose.Block.Statements {
			as := stmt.Assignment
			if as == nil {
				return spec, fmt.Errorf("%s: pose 段只允许赋值", stmt.Command.Pos)
			}
			text := as.Value.Literal()
			key := strings.ToLower(as.Key)
			switch key {
			case "radius":
				l, err := ctx.length(text)
				if err != nil {
					return spec, fmt.Errorf("pose.radius: %w", err)
				}
				spec.radius = &l
			case "angle":
				a, err := ctx.angle(text)
				if err != nil {
					return spec, fmt.Errorf("pose.angle: %w", err)
				}
				spec.angle = &a
			case "mode":
				v, err := ctx.resolve(text)
				if err != nil {
					return spec, fmt.Errorf("pose.mode: %w", err)
				}
				m, err := ParseAngleMode(fmt.Sprint(v))
				if err != nil {
					return spec, err
				}
				spec.options.Mode = m
			case "min-angle", "minangle", "min_angle":
				a, err := ctx.angle(text)
				if err != nil {
					return spec, fmt.Errorf("pose.%s: %w", as.Key, err)
				}
				spec.options.MinAngle = a
			case "tolerance":
				f, err := ctx.number(text)
				if err != nil {
					return spec, fmt.Errorf("pose.tolerance: %w", err)
				}
				spec.options.Tolerance = f
			case "max-iterations", "maxiterations", "max_iterations":
				f, err := ctx.number(text)
				if err != nil {
					return spec, fmt.Errorf("pose.%s: %w", as.Key, err)
				}
				spec.options.MaxIterations = int(f)
			default:
				return spec, fmt.Errorf("pose 段未知字段 %q", as.Key)
			}
		}
	}
	if (spec.radius == nil) != (spec.angle == nil) {
		return spec, fmt.Errorf("pose 段需要同时给出 radius 与 angle")
	}
	return spec, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	var meta DocumentMeta
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = stmt.Assignment.Value.Literal()
			case "author":
				meta.Author = stmt.Assignment.Value.Literal()
			case "notes", "description":
				meta.Notes = stmt.Assignment.Value.Literal()
			case "tags", "keywords":
				meta.Tags = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func firstChain(doc *dsl.Document) *dsl.ChainSection {
	for _, section := range doc.Sections {
		if section.Chain != nil {
			return section.Chain
		}
	}
	return nil
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := item.Literal(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := val.Literal(); s != "" {
		return []string{s}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
