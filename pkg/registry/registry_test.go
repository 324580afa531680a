package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// 每个工厂：空选项可构造，未知字段报错。
func TestFactories(t *testing.T) {
	ok := json.RawMessage(`{}`)
	bad := json.RawMessage(`{"x":1}`)
	check := func(t *testing.T, name string, build func(json.RawMessage) error) {
		t.Helper()
		if err := build(ok); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := build(bad); err == nil {
			t.Fatalf("%s 未对未知字段报错", name)
		}
	}
	for name, f := range Reader {
		check(t, "reader/"+name, func(raw json.RawMessage) error { _, err := f(raw); return err })
	}
	for name, f := range Decoder {
		check(t, "decoder/"+name, func(raw json.RawMessage) error { _, err := f(raw); return err })
	}
	for name, f := range Reporter {
		check(t, "reporter/"+name, func(raw json.RawMessage) error { _, err := f(raw); return err })
	}
	check(t, "writer/stdout", func(raw json.RawMessage) error { _, err := Writer["stdout"](raw); return err })
	// fs writer 需要 output_dir
	if _, err := Writer["fs"](json.RawMessage(`{"output_dir":"out"}`)); err != nil {
		t.Fatalf("writer/fs: %v", err)
	}
	if _, err := Writer["fs"](ok); err == nil {
		t.Fatalf("writer/fs 缺少 output_dir 应报错")
	}
}

func TestReporterExts(t *testing.T) {
	want := map[string]string{"text": "txt", "json": "json", "yaml": "yaml", "chart": "html"}
	got := map[string]string{}
	for name, f := range Reporter {
		r, err := f(nil)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got[name] = r.Ext()
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("(-want +got):\n%s", d)
	}
}

func TestNames(t *testing.T) {
	want := []string{"base64", "binary", "hex", "letters", "raw", "utf-8"}
	if d := cmp.Diff(want, Names(Decoder)); d != "" {
		t.Fatalf("(-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"fs", "stdout"}, Names(Writer)); d != "" {
		t.Fatalf("(-want +got):\n%s", d)
	}
}
