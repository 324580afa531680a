package kasiski

import (
	"fmt"

	"keylen/pkg/contract"
)

// Options 为 Analyze 的可选参数。
type Options struct {
	// Threshold: 尖峰阈值；nil 使用 DefaultThreshold。
	Threshold *float64
	// MaxPeriod: 扫描上界（不含）的截断值；0 使用 DefaultMaxPeriod。
	MaxPeriod int
	Workers   int
	Progress  func(done, total int)
}

// Analyze 依次执行 Scan → Detect → Cluster；任一步出错即整体失败。
func Analyze(seq contract.Symbols, opts Options) (contract.Analysis, error) {
	if len(seq) < 2 {
		return contract.Analysis{}, fmt.Errorf("analyze %d symbols: %w", len(seq), contract.ErrDegenerateInput)
	}
	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	maxN := EffectiveMaxPeriod(len(seq), opts.MaxPeriod)

	series, err := Scanner{Workers: opts.Workers, Progress: opts.Progress}.Scan(seq, maxN)
	if err != nil {
		return contract.Analysis{}, err
	}
	mean, sd, err := MeanStdDev(series.Values())
	if err != nil {
		return contract.Analysis{}, err
	}
	spikes, err := Detect(series, threshold)
	if err != nil {
		return contract.Analysis{}, err
	}
	hyps, err := Cluster(spikes, series)
	if err != nil {
		return contract.Analysis{}, err
	}
	return contract.Analysis{
		Length:     len(seq),
		MaxPeriod:  maxN,
		Threshold:  threshold,
		Mean:       mean,
		StdDev:     sd,
		Series:     series,
		Spikes:     spikes,
		Hypotheses: hyps,
	}, nil
}
