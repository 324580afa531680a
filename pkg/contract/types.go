package contract

// FileID: 逻辑输入ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Symbols: 待分析的符号序列（字节值 0..255）。
// 约束：整个分析期间只读，任何组件不得原地修改。
type Symbols []byte

// Point: 序列中的单点（候选周期 n ≥ 1，对应的平均列 IOC）。
type Point struct {
	Period int     `json:"period" yaml:"period"`
	IOC    float64 `json:"ioc" yaml:"ioc"`
}

// Series: 候选周期 1..maxN-1 的平均 IOC，下标 i 对应周期 i+1，无空洞。
type Series []Point

// Values 返回按下标排列的 IOC 值（新切片）。
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.IOC
	}
	return out
}

// Hypothesis: 一个尖峰簇折叠后的密钥长度假设。
// Cluster 为簇内全部候选周期（升序），Period/IOC 为代表点。
type Hypothesis struct {
	Period  int     `json:"period" yaml:"period"`
	IOC     float64 `json:"ioc" yaml:"ioc"`
	Cluster []int   `json:"cluster" yaml:"cluster"`
}

// Analysis: 单次分析的完整结果；出错时不产生部分结果。
type Analysis struct {
	// Length: 输入符号数。
	Length int `json:"length" yaml:"length"`
	// MaxPeriod: 扫描上界（不含）。
	MaxPeriod int     `json:"max_period" yaml:"max_period"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// Mean/StdDev: 序列 IOC 的样本均值与样本标准差（Bessel 校正）。
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Series Series  `json:"series" yaml:"series"`
	// Spikes: 超过阈值的序列下标（0 基，升序）。
	Spikes     []int        `json:"spikes" yaml:"spikes"`
	Hypotheses []Hypothesis `json:"hypotheses" yaml:"hypotheses"`
}

// Best 返回 IOC 最大的假设；并列时保留先发现者。无假设时 ok=false。
func (a Analysis) Best() (Hypothesis, bool) {
	if len(a.Hypotheses) == 0 {
		return Hypothesis{}, false
	}
	best := a.Hypotheses[0]
	for _, h := range a.Hypotheses[1:] {
		if h.IOC > best.IOC {
			best = h
		}
	}
	return best, true
}

// Report: Reporter 的输入，绑定来源与分析结果。
type Report struct {
	FileID   FileID   `json:"file_id" yaml:"file_id"`
	Analysis Analysis `json:"analysis" yaml:"analysis"`
}
