package yamlrep

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"keylen/pkg/contract"
)

// Options YAML 报告配置。
type Options struct {
	// Indent 缩进空格数，默认 2。
	Indent int `json:"indent"`
}

type Reporter struct{ indent int }

func New(opts *Options) *Reporter {
	r := &Reporter{indent: 2}
	if opts != nil && opts.Indent > 0 {
		r.indent = opts.Indent
	}
	return r
}

func (r *Reporter) Ext() string { return "yaml" }

func (r *Reporter) Render(ctx context.Context, rep contract.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(r.indent)
	if err := enc.Encode(rep); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
