package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端提示（非日志）。
// TTY 下进度单行 \r 覆盖；非 TTY 只在关键节点分行打印。
// 并发安全；写失败后转为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	workers     int
	filesDone   int
	filesFailed int
	runStart    time.Time

	// 并发处理多个文件时，进度行只显示最近一次更新的文件
	cur      string
	done     int
	total    int
	lastLen  int
	lastDraw time.Time

	mu sync.Mutex
}

var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置进程级终端（nil 清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回进程级终端，可能为 nil。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal enabled=false 时所有方法为 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				t.isTTY = fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	return t
}

// RunStart 记录文件并发与扫描 worker 数。
func (t *Terminal) RunStart(concurrency, workers int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.concurrency, t.workers = concurrency, workers
	t.filesDone, t.filesFailed = 0, 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 文件并发=%d | 扫描 worker=%d", concurrency, workers))
}

// FileStart 标记文件开始；symbols 为解码后序列长度，candidates 为候选周期数。
func (t *Terminal) FileStart(fileID string, symbols, candidates int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.cur = shortenBase(fileID, 48)
	t.done, t.total = 0, candidates
	if !t.isTTY {
		t.println(fmt.Sprintf("[file] %s | 符号 %d | 候选周期 %d", t.cur, symbols, candidates))
	}
}

// FileProgress 扫描进度；TTY 下 100ms 节流。
func (t *Terminal) FileProgress(fileID string, done, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.cur = shortenBase(fileID, 48)
	t.done, t.total = done, total
	now := time.Now()
	if done < total && now.Sub(t.lastDraw) < 100*time.Millisecond {
		return
	}
	t.lastDraw = now
	t.printInline(fmt.Sprintf("[scan] %s | %d/%d | 用时 %s", t.cur, done, total, formatDur(time.Since(t.runStart))))
}

// FileFinish 完成一个文件；best 为最佳假设摘要（可空）。
func (t *Terminal) FileFinish(fileID string, ok bool, dur time.Duration, best string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	status := "done"
	if ok {
		t.filesDone++
	} else {
		t.filesFailed++
		status = "fail"
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	line := fmt.Sprintf("[%s] %s | 用时 %s", status, shortenBase(fileID, 48), formatDur(dur))
	if best != "" {
		line += " | " + safe(best)
	}
	t.println(line)
}

// RunFinish 输出总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] 完成 %d | 失败 %d | 总用时 %s", tag, t.filesDone, t.filesFailed, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	n := visLen(s)
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if t.lastLen > n {
		b.WriteString(strings.Repeat(" ", t.lastLen-n))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = n
}

// shortenBase 取基名并按 rune 宽度截断，尾部省略号。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	rs := []rune(base)
	if len(rs) <= max {
		return base
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

// safe 去掉换行，避免污染终端。
func safe(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
