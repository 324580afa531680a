package diag

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// 进程内指标：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）
var (
	metricsMu sync.Mutex
	opTotal   = map[string]int64{}
	errTotal  = map[string]int64{}
	durTotal  = map[string]int64{}
)

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	metricsMu.Lock()
	opTotal[key(comp, stage, result)]++
	metricsMu.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	metricsMu.Lock()
	errTotal[key(comp, code)]++
	metricsMu.Unlock()
}

// ObserveDuration 累加阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	metricsMu.Lock()
	durTotal[key(comp, stage)] += durMS
	metricsMu.Unlock()
}

// Metrics 为某一时刻的指标快照；键形如 "comp/stage/result"。
type Metrics struct {
	Ops        map[string]int64
	Errors     map[string]int64
	DurationMS map[string]int64
}

// Snapshot 返回当前指标拷贝。
func Snapshot() Metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return Metrics{Ops: clone(opTotal), Errors: clone(errTotal), DurationMS: clone(durTotal)}
}

// ResetMetrics 清空全部指标（测试/多次运行间使用）。
func ResetMetrics() {
	metricsMu.Lock()
	opTotal = map[string]int64{}
	errTotal = map[string]int64{}
	durTotal = map[string]int64{}
	metricsMu.Unlock()
}

// Flatten 将快照展开为稳定排序的日志键值。
func (m Metrics) Flatten() map[string]string {
	out := map[string]string{}
	add := func(prefix string, src map[string]int64) {
		keys := make([]string, 0, len(src))
		for k := range src {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[prefix+":"+k] = strconv.FormatInt(src[k], 10)
		}
	}
	add("op", m.Ops)
	add("error", m.Errors)
	add("dur_ms", m.DurationMS)
	return out
}

func key(parts ...string) string { return strings.Join(parts, "/") }

func clone(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
