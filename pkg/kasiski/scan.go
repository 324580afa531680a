package kasiski

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"keylen/pkg/contract"
)

// DefaultMaxPeriod 为未配置时的扫描上界（不含）：输入长度的一半减一，最小为 2。
func DefaultMaxPeriod(length int) int {
	return max(2, length/2-1)
}

// EffectiveMaxPeriod: limit > 0 时以 limit 截断 DefaultMaxPeriod(length)。
// 输入长度 ≥ 2 时结果不超过 length。
func EffectiveMaxPeriod(length, limit int) int {
	m := DefaultMaxPeriod(length)
	if limit > 0 && limit < m {
		m = limit
	}
	if length >= 2 && m > length {
		m = length
	}
	return m
}

// Scanner 计算 IOC 序列。零值为顺序扫描。
type Scanner struct {
	// Workers: 并行扫描的候选数上限；<=1 为顺序执行。
	Workers int
	// Progress: 可选；每完成一个候选回调一次（串行调用）。
	Progress func(done, total int)
}

// Scan 等价于 Scanner{}.Scan。
func Scan(seq contract.Symbols, maxN int) (contract.Series, error) {
	return Scanner{}.Scan(seq, maxN)
}

// Scan 返回候选周期 1..maxN-1 的平均列 IOC，第 i 点对应周期 i+1。
// 长度 < 2 的列不计入均值。
// 要么返回完整序列，要么返回错误，不产生部分结果。
func (s Scanner) Scan(seq contract.Symbols, maxN int) (contract.Series, error) {
	if maxN < 2 {
		return nil, fmt.Errorf("scan up to period %d: %w", maxN, contract.ErrInvalidRange)
	}
	if len(seq) < 2 {
		return nil, fmt.Errorf("scan %d symbols: %w", len(seq), contract.ErrDegenerateInput)
	}
	if maxN > len(seq) {
		return nil, fmt.Errorf("scan up to period %d over %d symbols: %w", maxN, len(seq), contract.ErrInvalidRange)
	}

	total := maxN - 1
	series := make(contract.Series, total)
	var (
		mu   sync.Mutex
		done int
	)
	tick := func() {
		if s.Progress == nil {
			return
		}
		mu.Lock()
		done++
		s.Progress(done, total)
		mu.Unlock()
	}

	if s.Workers <= 1 {
		for n := 1; n < maxN; n++ {
			v, err := periodIOC(seq, n)
			if err != nil {
				return nil, err
			}
			series[n-1] = contract.Point{Period: n, IOC: v}
			tick()
		}
		return series, nil
	}

	// 每个候选写入独立槽位，无共享可变状态。
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.Workers)
	for n := 1; n < maxN; n++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := periodIOC(seq, n)
			if err != nil {
				return err
			}
			series[n-1] = contract.Point{Period: n, IOC: v}
			tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return series, nil
}

func periodIOC(seq contract.Symbols, n int) (float64, error) {
	cols, err := Transpose(seq, n)
	if err != nil {
		return 0, err
	}
	var sum float64
	used := 0
	for _, col := range cols {
		if len(col) < 2 {
			continue
		}
		v, err := IOC(col)
		if err != nil {
			return 0, err
		}
		sum += v
		used++
	}
	if used == 0 {
		return 0, fmt.Errorf("period %d leaves no column with two symbols: %w", n, contract.ErrDegenerateInput)
	}
	return sum / float64(used), nil
}
