package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"keylen/internal/diag"
	"keylen/pkg/contract"
	"keylen/pkg/kasiski"
)

// - 单点并发：文件级并发只在此层管理；Reader/Decoder/Reporter/Writer 均为同步实现。
// - 背压：Reader 在主 goroutine 顺序读入，g.Go 达到 Concurrency 上限时阻塞。
// - 首错取消：任一文件失败即取消整体；排空后返回该错误。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Decoder   contract.Decoder
	Reporters []contract.Reporter
	Writer    contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	// Concurrency 同时分析的文件数（<1 视为 1）。
	Concurrency int
	// Workers 单文件内扫描并发；<=1 为顺序扫描。
	Workers int
	// Threshold nil 使用默认阈值。
	Threshold *float64
	// MaxPeriod 0 表示按长度自动。
	MaxPeriod int
}

// Run 执行完整流水线：Reader → Decoder → Analyze → Reporters → Writer。
// 每个文件、每个 Reporter 产出一个工件，ID 为 "<fileID>.<ext>"。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	conc := set.Concurrency
	if conc < 1 {
		conc = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)

	rtimer := logger.Start("reader", "iterate")
	files := int64(0)
	err := comp.Reader.Iterate(gctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		if err := gctx.Err(); err != nil {
			return err
		}
		raw, err := io.ReadAll(rc)
		if err != nil {
			fail(logger, "reader", "read failed", string(fid), err)
			return fmt.Errorf("read %s: %w", fid, err)
		}
		files++
		g.Go(func() error { return runFile(gctx, comp, set, logger, fid, raw) })
		return nil
	})
	werr := g.Wait()
	if err != nil {
		// 组内首错导致的取消优先返回组内错误
		if werr != nil && errors.Is(err, context.Canceled) {
			return werr
		}
		fail(logger, "reader", "iterate failed", "", err)
		return fmt.Errorf("reader iterate: %w", err)
	}
	if werr != nil {
		return werr
	}
	rtimer.Finish("iterate", files)
	diag.IncOp("reader", "finish", "success")
	return nil
}

// runFile 处理单个文件：解码、分析、逐个 Reporter 渲染并写出。
func runFile(ctx context.Context, comp Components, set Settings, logger *diag.Logger, fid contract.FileID, raw []byte) (err error) {
	start := time.Now()
	best := ""
	defer func() {
		if t := diag.GetTerminal(); t != nil {
			t.FileFinish(string(fid), err == nil, time.Since(start), best)
		}
	}()

	dtimer := logger.StartWith("decoder", "decode", string(fid))
	seq, err := comp.Decoder.Decode(ctx, fid, raw)
	if err != nil {
		fail(logger, "decoder", "decode failed", string(fid), err)
		return fmt.Errorf("decoder decode: %w", err)
	}
	dtimer.Finish("decode", int64(len(seq)))
	diag.IncOp("decoder", "finish", "success")

	candidates := 0
	if len(seq) >= 2 {
		candidates = kasiski.EffectiveMaxPeriod(len(seq), set.MaxPeriod) - 1
	}
	if t := diag.GetTerminal(); t != nil {
		t.FileStart(string(fid), len(seq), candidates)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	atimer := logger.StartWith("analyzer", "analyze", string(fid))
	an, err := kasiski.Analyze(seq, kasiski.Options{
		Threshold: set.Threshold,
		MaxPeriod: set.MaxPeriod,
		Workers:   set.Workers,
		Progress: func(done, total int) {
			if t := diag.GetTerminal(); t != nil {
				t.FileProgress(string(fid), done, total)
			}
		},
	})
	if err != nil {
		fail(logger, "analyzer", "analyze failed", string(fid), err)
		return fmt.Errorf("analyze %s: %w", fid, err)
	}
	kv := map[string]string{
		"max_period": strconv.Itoa(an.MaxPeriod),
		"spikes":     strconv.Itoa(len(an.Spikes)),
	}
	if h, ok := an.Best(); ok {
		best = "key=" + strconv.Itoa(h.Period)
		kv["best"] = strconv.Itoa(h.Period)
	}
	atimer.FinishKV("analyze", int64(len(an.Hypotheses)), kv)
	diag.IncOp("analyzer", "finish", "success")

	rep := contract.Report{FileID: fid, Analysis: an}
	for _, r := range comp.Reporters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(ctx, comp.Writer, logger, r, rep); err != nil {
			return err
		}
	}
	return nil
}

// emit 渲染到内存缓冲后整体交给 Writer，避免半成品工件。
func emit(ctx context.Context, w contract.Writer, logger *diag.Logger, r contract.Reporter, rep contract.Report) error {
	id := contract.Artifact(rep.FileID, r.Ext())
	var buf bytes.Buffer
	ptimer := logger.StartWith("reporter", "render", string(id))
	if err := r.Render(ctx, rep, &buf); err != nil {
		fail(logger, "reporter", "render failed", string(id), err)
		return fmt.Errorf("reporter %s: %w", r.Ext(), err)
	}
	ptimer.Finish("render", int64(buf.Len()))
	diag.IncOp("reporter", "finish", "success")

	wtimer := logger.StartWith("writer", "write", string(id))
	if err := w.Write(ctx, id, &buf); err != nil {
		fail(logger, "writer", "write failed", string(id), err)
		return fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", 1)
	diag.IncOp("writer", "finish", "success")
	return nil
}

// fail 记录错误日志与计数；unknown 不计入错误码统计。
func fail(logger *diag.Logger, comp, msg, fileID string, err error) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg, nil, fileID, err)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Decoder == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(c.Reporters) == 0 {
		return errors.New("pipeline: no reporters")
	}
	for _, r := range c.Reporters {
		if r == nil {
			return errors.New("pipeline: nil reporter")
		}
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
