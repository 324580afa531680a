package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keylen/pkg/contract"
)

func noTmp(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("tmp file not cleaned: %s", e.Name())
		}
	}
}

func TestWriteAtomicFlat(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	id := contract.Artifact("cipher/a.txt", "json")
	for _, v := range []string{"v1", "v2"} {
		if err := w.Write(context.Background(), id, bytes.NewBufferString(v)); err != nil {
			t.Fatalf("write %s: %v", v, err)
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, "a.txt.json"))
	if err != nil || string(b) != "v2" {
		t.Fatalf("unexpected file %v %q", err, b)
	}
	noTmp(t, dir)
	if p, _ := w.Path(id); p != filepath.Join(dir, "a.txt.json") {
		t.Fatalf("path=%s", p)
	}
}

func TestWriteNested(t *testing.T) {
	dir := t.TempDir()
	flat, atomic := false, false
	w, _ := New(&Options{OutputDir: dir, Flat: &flat, Atomic: &atomic})
	if err := w.Write(context.Background(), "sub/a.txt.txt", bytes.NewBufferString("v")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "sub", "a.txt.txt"))
	if err != nil || string(b) != "v" {
		t.Fatalf("nested write: %v %q", err, b)
	}
}

func TestWritePathInvalid(t *testing.T) {
	dir := t.TempDir()
	flat := false
	w, _ := New(&Options{OutputDir: dir, Flat: &flat})
	for _, id := range []contract.ArtifactID{"../bad", "/abs/x", ".", ""} {
		err := w.Write(context.Background(), id, bytes.NewBufferString("x"))
		if !errors.Is(err, contract.ErrPathInvalid) {
			t.Fatalf("%q: expect path invalid, got %v", id, err)
		}
	}
	fw, _ := New(&Options{OutputDir: dir})
	if err := fw.Write(context.Background(), "..", bytes.NewBufferString("x")); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("flat '..': %v", err)
	}
}

func TestWriteCtxCancel(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, "a.txt", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect ctx error, got %v", err)
	}
	cr := &ctxReader{ctx: ctx, r: strings.NewReader("data")}
	if _, err := cr.Read(make([]byte, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("ctxReader: %v", err)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("nil opts: %v", err)
	}
	if _, err := New(&Options{OutputDir: "  "}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("blank dir: %v", err)
	}
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

func TestWriteAtomicCopyErrorKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	if err := w.Write(context.Background(), "a.txt", strings.NewReader("old")); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), "a.txt", errReader{}); err == nil {
		t.Fatalf("expect copy error")
	}
	noTmp(t, dir)
	if b, _ := os.ReadFile(filepath.Join(dir, "a.txt")); string(b) != "old" {
		t.Fatalf("target changed: %q", b)
	}
}
