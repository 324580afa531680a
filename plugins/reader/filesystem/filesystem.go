package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"keylen/pkg/contract"
)

// Options 为文件系统 Reader 的配置。
type Options struct {
	// BufSize 读缓冲（字节），默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames 递归时跳过的目录基名（不区分大小写），如 [".git","node_modules"]。
	ExcludeDirNames []string `json:"exclude_dir_names"`
	// AllowExts 目录递归时只收集这些扩展名（如 [".txt",".hex"]）；空表示不过滤。
	// 显式给出的文件 root 不受影响。
	AllowExts []string `json:"allow_exts"`
	// MaxBytes 单个输入的最大字节数（.gz 按解压后计）；超限读取返回 ErrInputTooLarge。0 不限制。
	MaxBytes int64 `json:"max_bytes"`
}

// FileSystem 基于文件系统与 STDIN 的 Reader。*.gz 文件透明解压，FileID 保留原名。
type FileSystem struct {
	bufSize    int
	maxBytes   int64
	excludeDir map[string]struct{}
	allowExt   map[string]struct{}
}

func New(opts *Options) *FileSystem {
	r := &FileSystem{bufSize: 64 * 1024, excludeDir: map[string]struct{}{}, allowExt: map[string]struct{}{}}
	if opts == nil {
		return r
	}
	if opts.BufSize > 0 {
		r.bufSize = opts.BufSize
	}
	if opts.MaxBytes > 0 {
		r.maxBytes = opts.MaxBytes
	}
	for _, n := range opts.ExcludeDirNames {
		if n = strings.Trim(strings.TrimSpace(n), `/\`); n != "" {
			r.excludeDir[strings.ToLower(n)] = struct{}{}
		}
	}
	for _, e := range opts.AllowExts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.allowExt[e] = struct{}{}
	}
	return r
}

// Iterate 按稳定顺序对每个常规文件调用 yield；roots 为空或仅为 "-" 时读 STDIN。
// yield 负责关闭 rc；yield 返回错误时由 Iterate 关闭。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		return yield("stdin", r.wrap(io.NopCloser(os.Stdin)))
	}
	for _, s := range roots {
		if s == "-" {
			return fmt.Errorf("stdin '-' mixed with other roots: %w", contract.ErrPathInvalid)
		}
	}
	for _, root := range roots {
		paths, err := r.collect(ctx, root)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := r.emit(ctx, p, yield); err != nil {
				return err
			}
		}
	}
	return nil
}

// collect 展开单个 root：文件（含指向常规文件的链接）直接返回；目录递归。
// 指向目录的链接与非常规文件忽略。
func (r *FileSystem) collect(ctx context.Context, root string) ([]string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if t.Mode().IsRegular() {
			return []string{root}, nil
		}
		return nil, nil
	}
	if info.IsDir() {
		var out []string
		return out, r.walk(ctx, root, &out)
	}
	if info.Mode().IsRegular() {
		return []string{root}, nil
	}
	return nil, nil
}

// walk 先子目录、后文件，各自按名字排序。
func (r *FileSystem) walk(ctx context.Context, dir string, out *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walk(ctx, filepath.Join(dir, e.Name()), out); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			mode = t.Mode()
		}
		if !mode.IsRegular() {
			continue
		}
		if !r.allowed(p) {
			continue
		}
		*out = append(*out, p)
	}
	return nil
}

// allowed 扩展名过滤；a.txt.gz 按 .txt 判断。
func (r *FileSystem) allowed(p string) bool {
	if len(r.allowExt) == 0 {
		return true
	}
	if isGzip(p) {
		p = p[:len(p)-len(filepath.Ext(p))]
	}
	_, ok := r.allowExt[strings.ToLower(filepath.Ext(p))]
	return ok
}

func isGzip(p string) bool { return strings.EqualFold(filepath.Ext(p), ".gz") }

func (r *FileSystem) emit(ctx context.Context, p string, yield func(contract.FileID, io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	var src io.ReadCloser = f
	if isGzip(p) {
		zr, err := gzip.NewReader(bufio.NewReaderSize(f, r.bufSize))
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("%s: %v: %w", p, err, contract.ErrDecode)
		}
		src = &gzipCloser{Reader: zr, f: f}
	}
	rc := r.wrap(src)
	if err := yield(contract.NormalizeFileID(p), rc); err != nil {
		_ = rc.Close()
		return err
	}
	return nil
}

func (r *FileSystem) wrap(c io.ReadCloser) io.ReadCloser {
	var rd io.Reader = bufio.NewReaderSize(c, r.bufSize)
	if r.maxBytes > 0 {
		rd = &sizeGuard{r: rd, left: r.maxBytes}
	}
	return &readCloser{Reader: rd, c: c}
}

type gzipCloser struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type readCloser struct {
	io.Reader
	c io.Closer
}

func (b *readCloser) Close() error { return b.c.Close() }

// sizeGuard 读取超过 left 字节时返回 ErrInputTooLarge。
type sizeGuard struct {
	r    io.Reader
	left int64
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	if g.left < 0 {
		return 0, contract.ErrInputTooLarge
	}
	// 多读 1 字节用于判定超限
	if int64(len(p)) > g.left+1 {
		p = p[:g.left+1]
	}
	n, err := g.r.Read(p)
	g.left -= int64(n)
	if g.left < 0 {
		return n + int(g.left), contract.ErrInputTooLarge
	}
	return n, err
}
