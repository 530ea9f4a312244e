package scissor

// 该文件定义剪叉链的尺寸描述、驱动输入与求解结果，供构建、求解、编码与调试 JSON 共用。

// Dimension 描述一个剪叉单元的四个长度。
//   - A: 指向右上方的杆件总长
//   - B: 指向左上方的杆件总长
//   - C: 从 A 杆起点到铰点（两杆交叉点）的距离
//   - D: 从 B 杆起点到同一铰点的距离
//
// 字段顺序与二进制记录格式一致，调整顺序会破坏按位置读取的下游。
type Dimension struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`
}

// Chain 按底座（索引 0）到末端的物理堆叠顺序保存剪叉单元。
type Chain []Dimension

// Clone 返回独立副本，调用方可以放心修改。
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	copy(out, c)
	return out
}

// Actuation 为求解输入：目标伸展距离与张开角（弧度）。
type Actuation struct {
	Radius float64 `json:"radius"`
	Angle  float64 `json:"angle"`
}

// Segment 表示一根杆件，坐标系以机构底座为原点。
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Point 是 JSON 友好的二维点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result 是跨边界（FFI、RPC、文件）使用的扁平结果：Code 非零时 Segments 必为空。
type Result struct {
	Code     Code      `json:"code"`
	Segments []Segment `json:"segments"`
}

// OK 报告结果是否携带可用几何。
func (r Result) OK() bool { return r.Code == CodeSuccess }

// UnitPose 记录单个单元求解后的关键点（单位与输入长度一致）。
type UnitPose struct {
	AOrigin Point   `json:"aOrigin"`
	BOrigin Point   `json:"bOrigin"`
	Pivot   Point   `json:"pivot"`
	AEnd    Point   `json:"aEnd"`
	BEnd    Point   `json:"bEnd"`
	Span    float64 `json:"span"`    // 底边 A0-B0 的长度
	Opening float64 `json:"opening"` // 铰点处侧向张开角（弧度）
}

// Envelope 为给定张开角下链条可达的伸展区间（闭区间）。
type Envelope struct {
	MinReach    float64 `json:"minReach"`
	MaxReach    float64 `json:"maxReach"`
	ClosedAngle float64 `json:"closedAngle"`
	OpenAngle   float64 `json:"openAngle"`
}

// Contains 判断 radius 是否落在闭区间内。
func (e Envelope) Contains(radius float64) bool {
	return radius >= e.MinReach && radius <= e.MaxReach
}

// Mid 返回区间中点。
func (e Envelope) Mid() float64 {
	return e.MinReach + (e.MaxReach-e.MinReach)/2
}

// Solution 保存一次求解的完整结果。
type Solution struct {
	Mode       AngleMode  `json:"mode"`
	Angle      float64    `json:"angle"` // 实际施加的有效张开角
	Reach      float64    `json:"reach"`
	Tip        Point      `json:"tip"`
	Iterations int        `json:"iterations"`
	Envelope   Envelope   `json:"envelope"`
	Units      []UnitPose `json:"units"`
	Segments   []Segment  `json:"segments"`
}

// Result 将 Solution 转为扁平结果。
func (s *Solution) Result() Result {
	if s == nil {
		return Result{Code: CodeNumericDivergence}
	}
	return Result{Code: CodeSuccess, Segments: s.Segments}
}

// SweepPoint 是扫描中的一个采样：目标伸展、求得的张开角、末端位置与状态码。
type SweepPoint struct {
	Radius float64 `json:"radius"`
	Angle  float64 `json:"angle"`
	Tip    Point   `json:"tip"`
	Code   Code    `json:"code"`
}
