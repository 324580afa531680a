package kasiski

import (
	"fmt"
	"slices"

	"keylen/pkg/contract"
)

// AdjacentGap: 同簇相邻尖峰允许的最大下标间隔。
const AdjacentGap = 1

// Group 排序去重后，将 idx 切分为相邻差不超过 maxGap 的最大连续段。
func Group(idx []int, maxGap int) [][]int {
	if len(idx) == 0 {
		return nil
	}
	sorted := slices.Clone(idx)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	groups := [][]int{{sorted[0]}}
	for _, x := range sorted[1:] {
		cur := groups[len(groups)-1]
		if x-cur[len(cur)-1] <= maxGap {
			groups[len(groups)-1] = append(cur, x)
			continue
		}
		groups = append(groups, []int{x})
	}
	return groups
}

// Cluster 合并相邻尖峰，每簇取 IOC 最大的下标为代表。
// 并列时取下标最小者：只有严格更大的值才替换当前代表。
// 输出按各簇最小下标升序。
func Cluster(spikes []int, series contract.Series) ([]contract.Hypothesis, error) {
	for _, i := range spikes {
		if i < 0 || i >= len(series) {
			return nil, fmt.Errorf("spike index %d outside series of %d points: %w", i, len(series), contract.ErrInvalidInput)
		}
	}
	groups := Group(spikes, AdjacentGap)
	out := make([]contract.Hypothesis, 0, len(groups))
	for _, g := range groups {
		best := g[0]
		periods := make([]int, len(g))
		for j, i := range g {
			periods[j] = series[i].Period
			if series[i].IOC > series[best].IOC {
				best = i
			}
		}
		out = append(out, contract.Hypothesis{
			Period:  series[best].Period,
			IOC:     series[best].IOC,
			Cluster: periods,
		})
	}
	return out, nil
}
