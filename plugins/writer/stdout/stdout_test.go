package stdout

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"keylen/pkg/contract"
)

func TestWriteHeader(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	w := NewTo(&buf, &Options{Header: true})
	g.Expect(w.Write(context.Background(), "a.txt.txt", strings.NewReader("body\n"))).To(Succeed())
	g.Expect(buf.String()).To(Equal("==> a.txt.txt <==\nbody\n"))

	buf.Reset()
	g.Expect(NewTo(&buf, nil).Write(context.Background(), "a", strings.NewReader("x"))).To(Succeed())
	g.Expect(buf.String()).To(Equal("x"))
}

func TestWriteNoInterleave(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	w := NewTo(&buf, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := strings.Repeat(fmt.Sprint(i), 5000) + "\n"
			_ = w.Write(context.Background(), contract.ArtifactID(fmt.Sprint(i)), strings.NewReader(body))
		}(i)
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	g.Expect(lines).To(HaveLen(8))
	for _, l := range lines {
		g.Expect(strings.Trim(l, l[:1])).To(BeEmpty())
	}
}

func TestWriteCanceled(t *testing.T) {
	g := NewWithT(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	g.Expect(NewTo(&buf, nil).Write(ctx, "a", strings.NewReader("x"))).To(MatchError(context.Canceled))
	g.Expect(buf.Len()).To(BeZero())
}
