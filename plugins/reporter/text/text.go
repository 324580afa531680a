package text

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"keylen/pkg/contract"
	"keylen/pkg/kasiski"
)

// Options 文本报告配置。
type Options struct {
	// HideSeries 只输出摘要与假设，不列出逐周期序列。
	HideSeries bool `json:"hide_series"`
	// Precision IOC/z 的小数位，默认 4。
	Precision int `json:"precision"`
}

// Reporter 人类可读的对齐表格。
type Reporter struct {
	hideSeries bool
	prec       int
}

func New(opts *Options) *Reporter {
	r := &Reporter{prec: 4}
	if opts != nil {
		r.hideSeries = opts.HideSeries
		if opts.Precision > 0 {
			r.prec = opts.Precision
		}
	}
	return r
}

func (r *Reporter) Ext() string { return "txt" }

func (r *Reporter) Render(ctx context.Context, rep contract.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := rep.Analysis
	f := func(v float64) string { return fmt.Sprintf("%.*f", r.prec, v) }

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", rep.FileID)
	fmt.Fprintf(tw, "symbols\t%d\n", a.Length)
	fmt.Fprintf(tw, "periods\t1..%d\n", a.MaxPeriod-1)
	fmt.Fprintf(tw, "threshold\t%s\n", f(a.Threshold))
	fmt.Fprintf(tw, "mean/stddev\t%s / %s\n", f(a.Mean), f(a.StdDev))

	if !r.hideSeries && len(a.Series) > 0 {
		z, err := kasiski.ZScores(a.Series)
		if err != nil {
			return err
		}
		spike := make(map[int]bool, len(a.Spikes))
		for _, i := range a.Spikes {
			spike[i] = true
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "period\tioc\tz\t")
		for i, p := range a.Series {
			mark := ""
			if spike[i] {
				mark = "*"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Period, f(p.IOC), f(z[i]), mark)
		}
	}

	fmt.Fprintln(tw)
	if len(a.Hypotheses) == 0 {
		fmt.Fprintln(tw, "no key length candidates above threshold")
		return tw.Flush()
	}
	fmt.Fprintln(tw, "key length\tioc\tcluster")
	for _, h := range a.Hypotheses {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", h.Period, f(h.IOC), joinInts(h.Cluster))
	}
	if best, ok := a.Best(); ok {
		fmt.Fprintf(tw, "\nbest\t%d\n", best.Period)
	}
	return tw.Flush()
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, ",")
}
