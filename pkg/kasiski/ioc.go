package kasiski

import (
	"fmt"

	"keylen/pkg/contract"
)

// IOC 返回 seq 的重合指数：均匀随机抽取两个不同位置、其符号相同的概率，
// 即 Σ c(c-1) / (L(L-1))，c 为各符号计数。
// 计数使用定长数组（字节字母表），不做哈希。
//
// 长度 < 2 返回 contract.ErrDegenerateInput。
func IOC(seq contract.Symbols) (float64, error) {
	n := len(seq)
	if n < 2 {
		return 0, fmt.Errorf("ioc over %d symbols: %w", n, contract.ErrDegenerateInput)
	}
	var counts [256]int
	for _, c := range seq {
		counts[c]++
	}
	var pairs int64
	for _, c := range counts {
		pairs += int64(c) * int64(c-1)
	}
	return float64(pairs) / (float64(n) * float64(n-1)), nil
}
