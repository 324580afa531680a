package diag

import (
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName 当前日志文件名；轮转出的备份为 keylen-current-<时间戳>.log，位于同一目录。
const LogFileName = "keylen-current.log"

// NewRotatingFile 返回写入 dir/keylen-current.log 的按大小轮转文件。
// maxMB 为单文件上限（MB，<=0 取 10）；maxBackups 为保留的备份数，0 表示全部保留。
func NewRotatingFile(dir string, maxMB, maxBackups int) *lumberjack.Logger {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    maxMB,
		MaxBackups: maxBackups,
	}
}
