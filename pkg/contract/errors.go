package contract

import "errors"

// 分析核心的前置条件错误；均为终止性错误，不重试。
var (
	// ErrDegenerateInput: 序列过短（< 2），无法构成符号对。
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidPeriod: 候选周期 < 1。
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidRange: 扫描上界 maxN < 2，或超出输入长度。
	ErrInvalidRange = errors.New("invalid range")
	// ErrInsufficientData: 序列点少于 2，标准差无定义。
	ErrInsufficientData = errors.New("insufficient data")
)

// 边界组件（读取/解码/写出）相关错误。
var (
	// ErrInvalidInput: 参数不满足约定（通用哨兵）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecode: 输入内容不符合所选编码（hex/base64/binary 等）。
	ErrDecode = errors.New("decode failed")
	// ErrInputTooLarge: 单个输入超过 max_bytes 限制。
	ErrInputTooLarge = errors.New("input too large")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
)
