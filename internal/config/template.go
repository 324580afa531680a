package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// 输入为 STDIN（"-"），text/json/chart 三种报告写到 ./out；
// 各组件 Options 列出全部键，值为中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	threshold := 0.85
	cfg := Config{
		Inputs:      []string{"-"},
		Concurrency: d.Concurrency,
		Analysis:    Analysis{Threshold: &threshold},
		Logging:     d.Logging,
		Components: Components{
			Reader:    d.Components.Reader,
			Decoder:   d.Components.Decoder,
			Reporters: []string{"text", "json", "chart"},
			Writer:    "fs",
		},
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "allow_exts": [],
  "max_bytes": 0
}`)
	cfg.Options.Decoder = json.RawMessage(`{
  "ignore_errors": false,
  "trim_space": true
}`)
	cfg.Options.Reporters = map[string]json.RawMessage{
		"text":  json.RawMessage(`{"hide_series": false, "precision": 4}`),
		"json":  json.RawMessage(`{"compact": false}`),
		"chart": json.RawMessage(`{"width": "1200px", "height": "600px", "hide_cutoff": false}`),
	}
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
