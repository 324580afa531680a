package kasiski

import (
	"fmt"

	"keylen/pkg/contract"
)

// Transpose 将 seq 拆为 n 列：第 i 个符号进入第 i mod n 列，列内保持原顺序。
// 返回的列与 seq 不共享存储。
func Transpose(seq contract.Symbols, n int) ([]contract.Symbols, error) {
	if n < 1 {
		return nil, fmt.Errorf("transpose into %d columns: %w", n, contract.ErrInvalidPeriod)
	}
	cols := make([]contract.Symbols, n)
	base, extra := len(seq)/n, len(seq)%n
	for k := range cols {
		size := base
		if k < extra {
			size++
		}
		cols[k] = make(contract.Symbols, 0, size)
	}
	for i, c := range seq {
		cols[i%n] = append(cols[i%n], c)
	}
	return cols, nil
}

// Interleave 为 Transpose 的逆：逐行横跨各列读取，还原原序列。
func Interleave(cols []contract.Symbols) contract.Symbols {
	total := 0
	for _, c := range cols {
		total += len(c)
	}
	out := make(contract.Symbols, 0, total)
	for row := 0; len(out) < total; row++ {
		for _, c := range cols {
			if row < len(c) {
				out = append(out, c[row])
			}
		}
	}
	return out
}
