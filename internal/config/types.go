package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Inputs 文件/目录，或单独的 "-" 表示 STDIN。
	Inputs []string `json:"inputs" validate:"min=1"`
	// Concurrency 同时分析的文件数。
	Concurrency int `json:"concurrency" validate:"gte=1"`
	// Workers 单个文件内扫描候选周期的并发数；0 表示 GOMAXPROCS。
	Workers  int      `json:"workers" validate:"gte=0"`
	Analysis Analysis `json:"analysis"`
	Logging  Logging  `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`
	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Analysis: 分析参数。
type Analysis struct {
	// Threshold 尖峰 z 分数阈值；缺省 0.85。用指针区分“未设置”与 0。
	Threshold *float64 `json:"threshold,omitempty"`
	// MaxPeriod 候选周期上界（不含）的截断值；0 表示按长度自动。
	MaxPeriod int `json:"max_period" validate:"eq=0|gte=2"`
}

// Logging: 仅日志等级可配置；输出位置与轮转策略固定。
type Logging struct {
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Components: 注册表中的实现名。
type Components struct {
	Reader    string   `json:"reader"`
	Decoder   string   `json:"decoder"`
	Reporters []string `json:"reporters" validate:"omitempty,unique"`
	Writer    string   `json:"writer"`
}

// Options: 各组件的原样 JSON Options；Reporters 按报告名索引。
type Options struct {
	Reader    json.RawMessage            `json:"reader,omitempty"`
	Decoder   json.RawMessage            `json:"decoder,omitempty"`
	Reporters map[string]json.RawMessage `json:"reporters,omitempty"`
	Writer    json.RawMessage            `json:"writer,omitempty"`
}
