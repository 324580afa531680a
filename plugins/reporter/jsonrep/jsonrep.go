package jsonrep

import (
	"context"
	"encoding/json"
	"io"

	"keylen/pkg/contract"
)

// Options JSON 报告配置。
type Options struct {
	// Compact 单行输出；默认两空格缩进。
	Compact bool `json:"compact"`
}

// Reporter 输出完整 contract.Report（含序列与假设）。
type Reporter struct{ compact bool }

func New(opts *Options) *Reporter {
	return &Reporter{compact: opts != nil && opts.Compact}
}

func (r *Reporter) Ext() string { return "json" }

func (r *Reporter) Render(ctx context.Context, rep contract.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if !r.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rep)
}
