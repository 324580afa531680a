package diag

import (
	"context"
	"errors"
	"io/fs"

	"keylen/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeInput     Code = "input"
	CodeConfig    Code = "config"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	// 输入形态：过短、无法解码、超限、序列点不足
	case errors.Is(err, contract.ErrDegenerateInput),
		errors.Is(err, contract.ErrInsufficientData),
		errors.Is(err, contract.ErrDecode),
		errors.Is(err, contract.ErrInputTooLarge):
		return CodeInput
	// 扫描范围/周期来自配置
	case errors.Is(err, contract.ErrInvalidRange), errors.Is(err, contract.ErrInvalidPeriod):
		return CodeConfig
	case errors.Is(err, contract.ErrInvalidInput), errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
