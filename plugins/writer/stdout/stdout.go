package stdout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"keylen/pkg/contract"
)

// Options 标准输出 Writer 配置。
type Options struct {
	// Header 在每个工件前输出 "==> <artifact> <==" 分隔行（多文件时便于区分）。
	Header bool `json:"header"`
}

// Writer 将工件依次写到同一个流；互斥保证多个工件不交错。
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	header bool
}

var _ contract.Writer = (*Writer)(nil)

// New 写到 os.Stdout。
func New(opts *Options) *Writer { return NewTo(os.Stdout, opts) }

// NewTo 写到任意 io.Writer。
func NewTo(w io.Writer, opts *Options) *Writer {
	return &Writer{out: w, header: opts != nil && opts.Header}
}

func (w *Writer) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bw := bufio.NewWriter(w.out)
	if w.header {
		if _, err := fmt.Fprintf(bw, "==> %s <==\n", id); err != nil {
			return err
		}
	}
	if _, err := io.Copy(bw, r); err != nil {
		return err
	}
	return bw.Flush()
}
