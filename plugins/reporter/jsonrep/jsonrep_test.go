package jsonrep

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"keylen/pkg/contract"
)

func sample() contract.Report {
	return contract.Report{
		FileID: "c.txt",
		Analysis: contract.Analysis{
			Length: 12, MaxPeriod: 5, Threshold: 0.85, Mean: 0.1, StdDev: 0.05,
			Series:     contract.Series{{Period: 1, IOC: 0.05}, {Period: 2, IOC: 0.1}, {Period: 3, IOC: 0.15}, {Period: 4, IOC: 0.1}},
			Spikes:     []int{2},
			Hypotheses: []contract.Hypothesis{{Period: 3, IOC: 0.15, Cluster: []int{3}}},
		},
	}
}

func TestRenderDecodesBack(t *testing.T) {
	var buf bytes.Buffer
	if err := New(nil).Render(context.Background(), sample(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"analysis\"") {
		t.Fatalf("expect indented output: %s", buf.String())
	}
	var got contract.Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d := cmp.Diff(sample(), got); d != "" {
		t.Fatalf("(-want +got):\n%s", d)
	}
}

func TestRenderCompactFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&Options{Compact: true}).Render(context.Background(), sample(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	if strings.Contains(out, "\n") {
		t.Fatalf("compact output should be one line: %q", out)
	}
	for _, k := range []string{`"file_id":"c.txt"`, `"max_period":5`, `"stddev":0.05`, `"cluster":[3]`} {
		if !strings.Contains(out, k) {
			t.Fatalf("missing %s in %s", k, out)
		}
	}
	if New(nil).Ext() != "json" {
		t.Fatalf("ext")
	}
}
