package kasiski

import (
	"fmt"
	"math"

	"keylen/pkg/contract"
)

// DefaultThreshold: 判定尖峰的 z 分数阈值。
const DefaultThreshold = 0.85

// 标准差低于该值视为平坦序列。
const flatStdDev = 1e-12

// MeanStdDev 返回样本均值与样本标准差（除以 n-1）。
// 少于 2 个值返回 contract.ErrInsufficientData。
func MeanStdDev(values []float64) (mean, stddev float64, err error) {
	n := len(values)
	if n < 2 {
		return 0, 0, fmt.Errorf("stddev over %d points: %w", n, contract.ErrInsufficientData)
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return mean, math.Sqrt(acc / float64(n-1)), nil
}

// ZScores 以序列均值与标准差标准化每个点；平坦序列全部为 0。
func ZScores(series contract.Series) ([]float64, error) {
	mean, sd, err := MeanStdDev(series.Values())
	if err != nil {
		return nil, err
	}
	z := make([]float64, len(series))
	if sd < flatStdDev {
		return z, nil
	}
	for i, p := range series {
		z[i] = (p.IOC - mean) / sd
	}
	return z, nil
}

// Detect 按升序返回 z 分数严格大于 threshold 的下标。
// 不做多重比较校正；阈值越高结果越是子集。
func Detect(series contract.Series, threshold float64) ([]int, error) {
	z, err := ZScores(series)
	if err != nil {
		return nil, err
	}
	spikes := make([]int, 0, len(z))
	for i, v := range z {
		if v > threshold {
			spikes = append(spikes, i)
		}
	}
	return spikes, nil
}
