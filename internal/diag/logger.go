package diag

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger: 结构化日志器。事件模型保持固定字段（comp/stage/code/dur_ms/count/file_id/kv），
// 由 logrus JSONFormatter 单行输出；默认写入 logs/keylen-current.log（10MiB 轮转）。
// nil *Logger 上的所有方法均为 no-op。
type Logger struct {
	corrID string
	lg     *logrus.Logger
	out    io.Closer
}

// NewLogger 按 level 初始化并写入默认轮转文件（logs/，10MB，保留 5 个备份）。
func NewLogger(corrID, level string) *Logger {
	rf := NewRotatingFile("logs", 10, 5)
	l := NewLoggerTo(rf, corrID, level)
	l.out = rf
	return l
}

// NewLoggerTo 写入指定 Writer；w 为 nil 时写 stderr。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	lg.SetLevel(ParseLevel(level))
	return &Logger{corrID: corrID, lg: lg}
}

// SetLevel 按最终配置调整级别，不重新打开输出。
func (l *Logger) SetLevel(level string) {
	if l == nil || l.lg == nil {
		return
	}
	l.lg.SetLevel(ParseLevel(level))
}

// Close 关闭 NewLogger 打开的日志文件；NewLoggerTo 的 Writer 由调用方管理。
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	return l.out.Close()
}

// ParseLevel 解析 debug|info|warn|error，其他值一律为 info。
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Event 为标准事件结构。
type Event struct {
	Comp   string
	Stage  string // start|finish|error
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Msg    string
	KV     map[string]string
}

func (l *Logger) log(lv logrus.Level, ev Event) {
	if l == nil || l.lg == nil || !l.lg.IsLevelEnabled(lv) {
		return
	}
	f := logrus.Fields{
		"corr_id": l.corrID,
		"comp":    ev.Comp,
		"stage":   ev.Stage,
	}
	if ev.Code != "" {
		f["code"] = ev.Code
	}
	if ev.DurMS != 0 {
		f["dur_ms"] = ev.DurMS
	}
	if ev.Count != 0 {
		f["count"] = ev.Count
	}
	if ev.FileID != "" {
		f["file_id"] = ev.FileID
	}
	if len(ev.KV) > 0 {
		f["kv"] = ev.KV
	}
	l.lg.WithFields(f).Log(lv, ev.Msg)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "")
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	if l == nil {
		return nil
	}
	l.log(logrus.InfoLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 file_id 与原始错误文本。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string, err error) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	var kv map[string]string
	if err != nil {
		kv = map[string]string{"error": err.Error()}
	}
	l.log(logrus.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, FileID: fileID, Msg: msg, KV: kv})
}

// Warn 记录 warn 事件（非致命）。
func (l *Logger) Warn(comp, msg, fileID string, kv map[string]string) {
	l.log(logrus.WarnLevel, Event{Comp: comp, Stage: "warn", FileID: fileID, Msg: msg, KV: kv})
}

// Debug 输出调试事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg, fileID string, kv map[string]string) {
	l.log(logrus.DebugLevel, Event{Comp: comp, Stage: "debug", FileID: fileID, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	t.FinishKV(msg, count, nil)
}

// FinishKV 记录带键值的 finish。
func (t *Timer) FinishKV(msg string, count int64, kv map[string]string) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0)
	t.l.log(logrus.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: dur.Milliseconds(), Count: count, FileID: t.fileID, Msg: msg, KV: kv})
	ObserveDuration(t.comp, "finish", dur.Milliseconds())
}
