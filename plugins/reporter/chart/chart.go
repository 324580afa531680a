package chart

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"keylen/pkg/contract"
)

// Options 图表报告配置。
type Options struct {
	Width  string `json:"width"`  // 默认 "1200px"
	Height string `json:"height"` // 默认 "600px"
	// HideCutoff 不画尖峰判定线（mean + threshold·stddev）。
	HideCutoff bool `json:"hide_cutoff"`
}

// Reporter 将 IOC-周期曲线渲染为独立 HTML（ECharts 折线图）。
// 每个假设在曲线上以标记点标注密钥长度；另画序列均值线。
type Reporter struct {
	width, height string
	hideCutoff    bool
}

func New(opts *Options) *Reporter {
	r := &Reporter{width: "1200px", height: "600px"}
	if opts != nil {
		if opts.Width != "" {
			r.width = opts.Width
		}
		if opts.Height != "" {
			r.height = opts.Height
		}
		r.hideCutoff = opts.HideCutoff
	}
	return r
}

func (r *Reporter) Ext() string { return "html" }

func (r *Reporter) Render(ctx context.Context, rep contract.Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a := rep.Analysis
	title := fmt.Sprintf("IOC by period: %s", rep.FileID)
	subtitle := fmt.Sprintf("symbols=%d threshold=%.2f", a.Length, a.Threshold)
	if best, ok := a.Best(); ok {
		subtitle += fmt.Sprintf(" best=%d", best.Period)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: r.width, Height: r.height}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "period"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ioc"}),
	)

	xs := make([]string, len(a.Series))
	ys := make([]opts.LineData, len(a.Series))
	for i, p := range a.Series {
		xs[i] = strconv.Itoa(p.Period)
		ys[i] = opts.LineData{Value: p.IOC}
	}

	marks := make([]opts.MarkPointNameCoordItem, 0, len(a.Hypotheses))
	for _, h := range a.Hypotheses {
		marks = append(marks, opts.MarkPointNameCoordItem{
			Name:       fmt.Sprintf("key %d", h.Period),
			Coordinate: []interface{}{strconv.Itoa(h.Period), h.IOC},
		})
	}
	seriesOpts := []charts.SeriesOpts{
		charts.WithMarkLineNameTypeItemOpts(opts.MarkLineNameTypeItem{Name: "mean", Type: "average"}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
	}
	if len(marks) > 0 {
		seriesOpts = append(seriesOpts, charts.WithMarkPointNameCoordItemOpts(marks...))
	}
	if !r.hideCutoff && a.StdDev > 0 {
		seriesOpts = append(seriesOpts, charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "spike cutoff",
			YAxis: a.Mean + a.Threshold*a.StdDev,
		}))
	}
	line.SetXAxis(xs).AddSeries("ioc", ys, seriesOpts...)
	return line.Render(w)
}
