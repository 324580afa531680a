package yamlrep

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"keylen/pkg/contract"
)

func TestRender(t *testing.T) {
	g := NewWithT(t)
	rep := contract.Report{
		FileID: "c.txt",
		Analysis: contract.Analysis{
			Length: 12, MaxPeriod: 4, Threshold: 0.85,
			Series:     contract.Series{{Period: 1, IOC: 0.05}, {Period: 2, IOC: 0.1}, {Period: 3, IOC: 0.3}},
			Spikes:     []int{2},
			Hypotheses: []contract.Hypothesis{{Period: 3, IOC: 0.3, Cluster: []int{3}}},
		},
	}
	var buf bytes.Buffer
	g.Expect(New(nil).Render(context.Background(), rep, &buf)).To(Succeed())
	g.Expect(buf.String()).To(HavePrefix("file_id: c.txt\n"))
	g.Expect(buf.String()).To(ContainSubstring("\n  max_period: 4\n"))

	var got contract.Report
	g.Expect(yaml.Unmarshal(buf.Bytes(), &got)).To(Succeed())
	g.Expect(got).To(Equal(rep))
}

func TestRenderIndent(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	r := New(&Options{Indent: 4})
	g.Expect(r.Render(context.Background(), contract.Report{FileID: "x"}, &buf)).To(Succeed())
	g.Expect(strings.Contains(buf.String(), "\n    length: 0\n")).To(BeTrue(), buf.String())
	g.Expect(r.Ext()).To(Equal("yaml"))
}
