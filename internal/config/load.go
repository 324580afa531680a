package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-envparse"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 为全部环境变量键的前缀。
const EnvPrefix = "KEYLEN_"

// Defaults 返回带安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Concurrency: 1,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Decoder:   "raw",
			Reporters: []string{"text"},
			Writer:    "stdout",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config json: %w", err)
	}
	return cfg, nil
}

// LoadYAML 先解析为通用树，再转 JSON 走同一条严格解码路径。
// Options 子树因此保持原样 JSON 语义。
func LoadYAML(raw []byte) (Config, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	if tree == nil {
		return Config{}, errors.New("config yaml: empty document")
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	return LoadJSON("", b)
}

// LoadFile 按扩展名选择格式：.yaml/.yml 为 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(b)
	default:
		return LoadJSON(path, nil)
	}
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串/原样 JSON 为整体替换，不做深度合并。
func Merge(base, over Config) Config {
	out := base
	out.Inputs = cloneStrings(base.Inputs)
	out.Components.Reporters = cloneStrings(base.Components.Reporters)
	out.Options.Reporters = cloneRawMap(base.Options.Reporters)

	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if over.Analysis.Threshold != nil {
		v := *over.Analysis.Threshold
		out.Analysis.Threshold = &v
	}
	if over.Analysis.MaxPeriod != 0 {
		out.Analysis.MaxPeriod = over.Analysis.MaxPeriod
	}
	if lv := strings.TrimSpace(over.Logging.Level); lv != "" {
		out.Logging.Level = lv
	}

	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Decoder != "" {
		out.Components.Decoder = over.Components.Decoder
	}
	if len(over.Components.Reporters) > 0 {
		out.Components.Reporters = cloneStrings(over.Components.Reporters)
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Decoder) > 0 {
		out.Options.Decoder = cloneRaw(over.Options.Decoder)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	for k, v := range over.Options.Reporters {
		if out.Options.Reporters == nil {
			out.Options.Reporters = map[string]json.RawMessage{}
		}
		out.Options.Reporters[k] = cloneRaw(v)
	}
	return out
}

// EnvOverlay 从 KEYLEN_* 环境变量构建覆盖层。同一键多次出现时后者生效。
// 支持：INPUTS, CONCURRENCY, WORKERS, THRESHOLD, MAX_PERIOD, LOG_LEVEL,
// COMPONENTS_{READER,DECODER,REPORTERS,WRITER},
// OPTIONS_{READER,DECODER,WRITER}_JSON, OPTIONS_REPORTER__<name>_JSON。
// 其他 KEYLEN_ 键忽略（例如 CONFIG_FILE 由 CLI 处理）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		nk := strings.TrimPrefix(key, EnvPrefix)
		tv := strings.TrimSpace(val)
		switch nk {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY", "WORKERS", "MAX_PERIOD":
			n, err := strconv.Atoi(tv)
			if err != nil {
				return Config{}, fmt.Errorf("env %s: %w", key, err)
			}
			switch nk {
			case "CONCURRENCY":
				over.Concurrency = n
			case "WORKERS":
				over.Workers = n
			default:
				over.Analysis.MaxPeriod = n
			}
		case "THRESHOLD":
			f, err := strconv.ParseFloat(tv, 64)
			if err != nil {
				return Config{}, fmt.Errorf("env %s: %w", key, err)
			}
			over.Analysis.Threshold = &f
		case "LOG_LEVEL":
			over.Logging.Level = tv
		case "COMPONENTS_READER":
			over.Components.Reader = tv
		case "COMPONENTS_DECODER":
			over.Components.Decoder = tv
		case "COMPONENTS_REPORTERS":
			over.Components.Reporters = splitComma(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = tv
		case "OPTIONS_READER_JSON":
			over.Options.Reader = rawOrNil(tv)
		case "OPTIONS_DECODER_JSON":
			over.Options.Decoder = rawOrNil(tv)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = rawOrNil(tv)
		default:
			// OPTIONS_REPORTER__chart_JSON
			if name, ok := strings.CutPrefix(nk, "OPTIONS_REPORTER__"); ok && strings.HasSuffix(name, "_JSON") && tv != "" {
				name = strings.ToLower(strings.TrimSuffix(name, "_JSON"))
				if over.Options.Reporters == nil {
					over.Options.Reporters = map[string]json.RawMessage{}
				}
				over.Options.Reporters[name] = json.RawMessage(tv)
			}
		}
	}
	return over, nil
}

// LoadDotEnv 解析 .env 文件，返回其中 KEYLEN_* 键的 "K=V" 列表（按键名排序）。
// 文件不存在时返回 nil。调用方把结果放在 os.Environ() 之前，进程环境优先。
func LoadDotEnv(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	m, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("dotenv %s: %w", path, err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, EnvPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m[k])
	}
	return out, nil
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func cloneRawMap(in map[string]json.RawMessage) map[string]json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = cloneRaw(v)
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
