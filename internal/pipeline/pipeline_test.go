package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"keylen/internal/diag"
	"keylen/pkg/contract"
	dtext "keylen/plugins/decoder/textenc"
	rjson "keylen/plugins/reporter/jsonrep"
	rtext "keylen/plugins/reporter/text"
)

// 通用桩件 ----------------------------------------------------

// mapReader 按名字顺序产出内存文件。
type mapReader map[string]string

func (m mapReader) Iterate(ctx context.Context, roots []string, yield func(contract.FileID, io.ReadCloser) error) error {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(contract.FileID(n), io.NopCloser(strings.NewReader(m[n]))); err != nil {
			return err
		}
	}
	return nil
}

type memWriter struct {
	mu   sync.Mutex
	out  map[contract.ArtifactID]string
	fail contract.ArtifactID
}

func (w *memWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if id == w.fail {
		return fmt.Errorf("disk full: %w", contract.ErrPathInvalid)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		w.out = map[contract.ArtifactID]string{}
	}
	w.out[id] = string(b)
	return nil
}

func (w *memWriter) ids() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.out))
	for k := range w.out {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

type errReporter struct{}

func (errReporter) Ext() string { return "bad" }
func (errReporter) Render(ctx context.Context, rep contract.Report, w io.Writer) error {
	return errors.New("render boom")
}

// skewed5 长度 260：密钥长度 5 的移位密文，尖峰落在 5/10/15。
func skewed5() string {
	weights := []int{12, 9, 8, 7, 7, 6, 6, 6, 5, 4, 4, 3, 3, 3, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1}
	key := []int{3, 14, 7, 20, 11}
	total := 0
	for _, w := range weights {
		total += w
	}
	state := uint32(2024)
	var sb strings.Builder
	for i := 0; i < 260; i++ {
		state = state*1664525 + 1013904223
		r := int(state>>16) % total
		c := 0
		for r >= weights[c] {
			r -= weights[c]
			c++
		}
		sb.WriteByte(byte('A' + (c+key[i%5])%26))
	}
	return sb.String()
}

func rawDecoder(t *testing.T) contract.Decoder {
	t.Helper()
	d, err := dtext.New(string(dtext.Raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// -------------------------------------------------------------

func TestRunWritesOneArtifactPerReporter(t *testing.T) {
	g := NewWithT(t)
	w := &memWriter{}
	comp := Components{
		Reader:    mapReader{"a.txt": skewed5(), "b.txt": skewed5()},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil), rtext.New(nil)},
		Writer:    w,
	}
	set := Settings{Inputs: []string{"in"}, Concurrency: 2, Workers: 2, MaxPeriod: 20}
	g.Expect(Run(context.Background(), comp, set, nil)).To(Succeed())
	g.Expect(w.ids()).To(Equal([]string{"a.txt.json", "a.txt.txt", "b.txt.json", "b.txt.txt"}))

	var rep contract.Report
	g.Expect(json.Unmarshal([]byte(w.out["a.txt.json"]), &rep)).To(Succeed())
	g.Expect(rep.FileID).To(Equal(contract.FileID("a.txt")))
	g.Expect(rep.Analysis.MaxPeriod).To(Equal(20))
	best, ok := rep.Analysis.Best()
	g.Expect(ok).To(BeTrue())
	g.Expect(best.Period).To(Equal(5))
	g.Expect(w.out["a.txt.txt"]).To(ContainSubstring("best"))
}

func TestRunThresholdPassedThrough(t *testing.T) {
	g := NewWithT(t)
	w := &memWriter{}
	high := 10.0
	comp := Components{
		Reader:    mapReader{"a": skewed5()},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    w,
	}
	set := Settings{Inputs: []string{"-"}, Threshold: &high, MaxPeriod: 20}
	g.Expect(Run(context.Background(), comp, set, nil)).To(Succeed())
	var rep contract.Report
	g.Expect(json.Unmarshal([]byte(w.out["a.json"]), &rep)).To(Succeed())
	g.Expect(rep.Analysis.Threshold).To(Equal(10.0))
	g.Expect(rep.Analysis.Hypotheses).To(BeEmpty())
}

func TestRunDegenerateInputFails(t *testing.T) {
	g := NewWithT(t)
	diag.ResetMetrics()
	w := &memWriter{}
	comp := Components{
		Reader:    mapReader{"a": skewed5(), "z": "x"},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    w,
	}
	err := Run(context.Background(), comp, Settings{Inputs: []string{"in"}}, nil)
	g.Expect(err).To(MatchError(contract.ErrDegenerateInput))
	g.Expect(err.Error()).To(ContainSubstring("z"))
	g.Expect(diag.Snapshot().Errors).To(HaveKeyWithValue("analyzer/input", int64(1)))
}

func TestRunDecodeError(t *testing.T) {
	g := NewWithT(t)
	d, err := dtext.New(string(dtext.Hex), nil)
	g.Expect(err).NotTo(HaveOccurred())
	comp := Components{
		Reader:    mapReader{"a.hex": "zz"},
		Decoder:   d,
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    &memWriter{},
	}
	err = Run(context.Background(), comp, Settings{Inputs: []string{"in"}}, nil)
	g.Expect(err).To(MatchError(contract.ErrDecode))
}

func TestRunReporterAndWriterErrors(t *testing.T) {
	g := NewWithT(t)
	comp := Components{
		Reader:    mapReader{"a": skewed5()},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{errReporter{}},
		Writer:    &memWriter{},
	}
	set := Settings{Inputs: []string{"in"}, MaxPeriod: 20}
	g.Expect(Run(context.Background(), comp, set, nil)).To(MatchError(ContainSubstring("render boom")))

	comp.Reporters = []contract.Reporter{rjson.New(nil)}
	comp.Writer = &memWriter{fail: "a.json"}
	g.Expect(Run(context.Background(), comp, set, nil)).To(MatchError(contract.ErrPathInvalid))
}

func TestRunFirstErrorCancelsRest(t *testing.T) {
	g := NewWithT(t)
	files := mapReader{"00-bad": "x"}
	for i := 1; i <= 20; i++ {
		files[fmt.Sprintf("%02d", i)] = skewed5()
	}
	w := &memWriter{}
	comp := Components{
		Reader:    files,
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    w,
	}
	err := Run(context.Background(), comp, Settings{Inputs: []string{"in"}, Concurrency: 1, MaxPeriod: 20}, nil)
	g.Expect(err).To(MatchError(contract.ErrDegenerateInput))
	g.Expect(len(w.ids())).To(BeNumerically("<", 20))
}

func TestRunCanceledContext(t *testing.T) {
	g := NewWithT(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	comp := Components{
		Reader:    mapReader{"a": skewed5()},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    &memWriter{},
	}
	g.Expect(Run(ctx, comp, Settings{Inputs: []string{"in"}}, nil)).To(MatchError(context.Canceled))
}

func TestRunSanity(t *testing.T) {
	g := NewWithT(t)
	full := Components{
		Reader:    mapReader{},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    &memWriter{},
	}
	set := Settings{Inputs: []string{"in"}}
	g.Expect(Run(context.Background(), full, set, nil)).To(Succeed())

	noRep := full
	noRep.Reporters = nil
	g.Expect(Run(context.Background(), noRep, set, nil)).To(MatchError(ContainSubstring("no reporters")))

	noWriter := full
	noWriter.Writer = nil
	g.Expect(Run(context.Background(), noWriter, set, nil)).To(MatchError(ContainSubstring("missing components")))

	g.Expect(Run(context.Background(), full, Settings{}, nil)).To(MatchError(ContainSubstring("empty inputs")))
}

func TestRunLogsAndMetrics(t *testing.T) {
	g := NewWithT(t)
	diag.ResetMetrics()
	var buf strings.Builder
	logger := diag.NewLoggerTo(&buf, "corr-1", "info")
	comp := Components{
		Reader:    mapReader{"a": skewed5()},
		Decoder:   rawDecoder(t),
		Reporters: []contract.Reporter{rjson.New(nil)},
		Writer:    &memWriter{},
	}
	g.Expect(Run(context.Background(), comp, Settings{Inputs: []string{"in"}, MaxPeriod: 20}, logger)).To(Succeed())
	out := buf.String()
	g.Expect(out).To(ContainSubstring(`"corr_id":"corr-1"`))
	g.Expect(out).To(ContainSubstring(`"comp":"analyzer"`))
	g.Expect(out).To(ContainSubstring(`"file_id":"a.json"`))
	m := diag.Snapshot()
	g.Expect(m.Ops).To(HaveKeyWithValue("analyzer/finish/success", int64(1)))
	g.Expect(m.Ops).To(HaveKeyWithValue("writer/finish/success", int64(1)))
	g.Expect(m.Ops).To(HaveKeyWithValue("reader/finish/success", int64(1)))
}
