// Package kasiski 仅凭密文估计周期性多表代换密码（典型为 Vigenère）的密钥长度。
//
// 对每个候选周期 n，将密文按位置模 n 拆为 n 列（Transpose）。当 n 等于密钥长度时，
// 每列只经过单一代换表加密，保留明文的偏斜频率分布，列的平均重合指数（IOC）
// 明显高于相邻候选。Scan 产出每个候选的平均 IOC；Detect 标记 z 分数超过阈值的点；
// Cluster 将相邻尖峰折叠为一个假设。
//
// 所有函数对输入只读；返回的切片均为新分配。
package kasiski
