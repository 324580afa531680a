package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"keylen/pkg/contract"
)

// Options 文件系统 Writer 配置。
type Options struct {
	// OutputDir 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// Atomic 同目录临时文件 + rename；nil 视为 true。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat 只保留工件基名；nil 视为 true。false 时按 ArtifactID 的目录层级落盘。
	Flat *bool `json:"flat,omitempty"`
	// PermFile/PermDir 为 0 时使用 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	BufSize  int         `json:"buf_size,omitempty"`
}

// FS 将报告工件写到 OutputDir 下。
type FS struct {
	root    string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

var _ contract.Writer = (*FS)(nil)

func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("writer fs: output_dir required: %w", contract.ErrInvalidInput)
	}
	w := &FS{root: opts.OutputDir, atomic: true, flat: true, permF: 0o644, permD: 0o755, bufSize: 64 * 1024}
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.Flat != nil {
		w.flat = *opts.Flat
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

// Write 将 r 的全部字节写入 id 映射的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	r = &ctxReader{ctx: ctx, r: r}
	if w.atomic {
		return w.writeAtomic(dest, r)
	}
	return w.writeTrunc(dest, r)
}

// Path 返回 id 的落盘路径（日志/终端展示用）。
func (w *FS) Path(id contract.ArtifactID) (string, error) { return w.mapPath(id) }

// mapPath: Clean 后拼接到 root；非扁平模式拒绝绝对路径、卷名与 '..' 逃逸。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	if w.flat {
		rel = filepath.Base(rel)
	}
	switch {
	case rel == "." || rel == ".." || rel == string(filepath.Separator):
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	case filepath.IsAbs(rel) || filepath.VolumeName(rel) != "":
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	case strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("artifact %q: %w", id, contract.ErrPathInvalid)
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeTrunc(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeAtomic 失败时删除临时文件，目标保持原样。
// os.Rename 在 Windows 上同样是覆盖式替换。
func (w *FS) writeAtomic(dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = tmp.Chmod(w.permF); err != nil {
		return err
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, r); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

// syncDir 尽力 fsync 父目录；不支持的平台忽略错误。
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}

// ctxReader 每次 Read 前检查取消。
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
