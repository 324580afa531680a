package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	cfgpkg "keylen/internal/config"
	"keylen/internal/diag"
	"keylen/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 单命令 CLI：位置参数为 roots（文件/目录 或 "-" 表示 STDIN，不能与其他根混用）。
// 退出码：0 成功；1 运行期失败；3 配置/装配失败。
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := shortuuid.New()
	logLevel := "info"
	// 先用默认级别，解析/合并配置后按最终 level 调整
	logger := diag.NewLogger(corrID, logLevel)
	defer logger.Close()

	var (
		flagConfig      string
		flagEnvFile     string
		flagThreshold   float64
		flagMaxPeriod   int
		flagWorkers     int
		flagConcurrency int
		flagDecoder     string
		flagReport      string
		flagOut         string
		flagLogLevel    string
		flagInitDir     string
		flagStatus      bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（.json/.yaml）；缺省读取 ./keylen.json|yaml（若存在）")
	flag.StringVar(&flagEnvFile, "env-file", ".env", "dotenv 文件；仅应用 KEYLEN_* 键，进程环境优先")
	flag.Float64Var(&flagThreshold, "threshold", 0.85, "尖峰 z 分数阈值（覆盖配置）")
	flag.IntVar(&flagMaxPeriod, "max-period", 0, "候选周期上界截断；0 表示按长度自动（覆盖配置）")
	flag.IntVar(&flagWorkers, "workers", 0, "单文件扫描并发；0 表示 GOMAXPROCS（覆盖配置）")
	flag.IntVar(&flagConcurrency, "concurrency", 0, "同时分析的文件数（覆盖配置）")
	flag.StringVar(&flagDecoder, "decoder", "", "输入编码：raw|utf-8|hex|base64|binary|letters（覆盖配置）")
	flag.StringVar(&flagReport, "report", "", "报告格式，逗号分隔：text,json,yaml,chart（覆盖配置）")
	flag.StringVar(&flagOut, "out", "", "输出目录；设置后改用 fs writer")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成 keylen.json 与 .env 模板（不覆盖）；不带值时为当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	normalizeInitArg()
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		return 3
	}
	// 记录显式给出的旗标：允许把 0 作为有效覆盖值
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	roots := flag.Args()

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			return fail(logger, "生成默认配置失败", err, start, 3)
		}
		if err := writeConfig(filepath.Join(initDir, "keylen.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
			return fail(logger, "生成默认配置失败", err, start, 3)
		}
		if err := writeDotEnv(filepath.Join(initDir, ".env")); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return 0
	}

	// .env 在进程环境之前：同名键以进程环境为准
	dotenv, err := cfgpkg.LoadDotEnv(flagEnvFile)
	if err != nil {
		return fail(logger, ".env 解析失败", err, start, 3)
	}
	environ := append(dotenv, os.Environ()...)

	// 配置源：KEYLEN_CONFIG_JSON > --config > KEYLEN_CONFIG_FILE > ./keylen.{json,yaml,yml}
	cfg := cfgpkg.Defaults()
	if raw := lookup(environ, "KEYLEN_CONFIG_JSON"); raw != "" {
		base, err := cfgpkg.LoadJSON("", []byte(raw))
		if err != nil {
			return fail(logger, "配置解析失败", err, start, 3)
		}
		cfg = cfgpkg.Merge(cfg, base)
	} else if path := configPath(flagConfig, environ); path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return fail(logger, "配置解析失败", err, start, 3)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(environ)
	if err != nil {
		return fail(logger, "环境变量解析失败", err, start, 3)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	if len(roots) > 0 {
		overCLI.Inputs = roots
	}
	if set["threshold"] {
		overCLI.Analysis.Threshold = &flagThreshold
	}
	if set["concurrency"] {
		overCLI.Concurrency = flagConcurrency
	}
	overCLI.Components.Decoder = strings.TrimSpace(flagDecoder)
	if flagReport != "" {
		overCLI.Components.Reporters = splitComma(flagReport)
	}
	overCLI.Logging.Level = strings.TrimSpace(flagLogLevel)
	cfg = cfgpkg.Merge(cfg, overCLI)
	// 0 对这两项有含义（自动），Merge 视 0 为未设置，单独处理
	if set["workers"] {
		cfg.Workers = flagWorkers
	}
	if set["max-period"] {
		cfg.Analysis.MaxPeriod = flagMaxPeriod
	}
	if dir := strings.TrimSpace(flagOut); dir != "" {
		if err := useOutputDir(&cfg, dir); err != nil {
			return fail(logger, "输出选项无效", err, start, 3)
		}
	}

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.ErrorWith("pipeline", string(diag.CodeConfig), "first error", &start, "", err)
		return 3
	}

	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		logLevel = lv
	}
	logger.SetLevel(logLevel)

	// 预检：fs writer 的输出目录可写性
	if err := preflightCheckOutputDir(cfg); err != nil {
		return fail(logger, "输出目录不可写或无法创建", err, start, 3)
	}

	comp, settings, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return fail(logger, "装配失败", err, start, 3)
	}

	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	if term != nil {
		term.RunStart(settings.Concurrency, settings.Workers)
	}

	kv := map[string]string{
		"inputs_count": strconv.Itoa(len(cfg.Inputs)),
		"concurrency":  strconv.Itoa(settings.Concurrency),
		"workers":      strconv.Itoa(settings.Workers),
		"max_period":   strconv.Itoa(settings.MaxPeriod),
		"reader":       cfg.Components.Reader,
		"decoder":      cfg.Components.Decoder,
		"reporters":    strings.Join(cfg.Components.Reporters, ","),
		"writer":       cfg.Components.Writer,
		"dotenv_keys":  strconv.Itoa(len(dotenv)),
	}
	if settings.Threshold != nil {
		kv["threshold"] = strconv.FormatFloat(*settings.Threshold, 'g', -1, 64)
	}
	logger.Debug("config", "effective", "", kv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	err = pipelineRun(ctx, comp, settings, logger)
	logger.Debug("metrics", "snapshot", "", diag.Snapshot().Flatten())
	if err != nil {
		code := string(diag.Classify(err))
		logger.ErrorWith("pipeline", code, "first error", &start, "", err)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		if term != nil {
			term.RunFinish(false, time.Since(start))
		}
		return 1
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	if term != nil {
		term.RunFinish(true, time.Since(start))
	}
	return 0
}

// fail 打印到 stderr 并记录首错，返回给定退出码。
func fail(logger *diag.Logger, msg string, err error, start time.Time, exit int) int {
	fprintf(os.Stderr, "%s: %v\n", msg, err)
	logger.ErrorWith("pipeline", string(diag.Classify(err)), "first error", &start, "", err)
	return exit
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

// lookup 返回 environ 中键 k 的最后一个值（后者覆盖前者）。
func lookup(environ []string, k string) string {
	v := ""
	for _, kv := range environ {
		if key, val, ok := strings.Cut(kv, "="); ok && key == k {
			v = val
		}
	}
	return v
}

func configPath(flagConfig string, environ []string) string {
	if flagConfig != "" {
		return flagConfig
	}
	if s := lookup(environ, "KEYLEN_CONFIG_FILE"); s != "" {
		return s
	}
	for _, name := range []string{"keylen.json", "keylen.yaml", "keylen.yml"} {
		if st, err := os.Stat(name); err == nil && !st.IsDir() {
			return name
		}
	}
	return ""
}

// useOutputDir 切换到 fs writer；若已是 fs，保留其余选项只替换 output_dir。
func useOutputDir(cfg *cfgpkg.Config, dir string) error {
	opts := map[string]any{}
	if cfg.Components.Writer == "fs" && len(cfg.Options.Writer) > 0 {
		if err := json.Unmarshal(cfg.Options.Writer, &opts); err != nil {
			return fmt.Errorf("options.writer: %w", err)
		}
	}
	opts["output_dir"] = dir
	b, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	cfg.Components.Writer = "fs"
	cfg.Options.Writer = b
	return nil
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

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}

// normalizeInitArg: --init-config 裸开关（位于末尾或后接其他开关）时补默认值 "."。
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a == "--init-config" || a == "-init-config" {
			if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") {
				out = append(out, ".")
			}
		}
	}
	os.Args = out
}

// dotenvTemplate: --init-config 生成的 .env 模板（空值表示未设置）。
const dotenvTemplate = `# keylen .env 模板（由 --init-config 生成）
# 优先级：CLI > 进程环境 > .env > 配置文件 > 默认值
# 仅 KEYLEN_ 前缀的键生效。

# 配置来源（二选一）
KEYLEN_CONFIG_FILE=
KEYLEN_CONFIG_JSON=

# 运行参数
KEYLEN_INPUTS=
KEYLEN_CONCURRENCY=
KEYLEN_WORKERS=
KEYLEN_THRESHOLD=
KEYLEN_MAX_PERIOD=
KEYLEN_LOG_LEVEL=

# 组件选择
KEYLEN_COMPONENTS_READER=
KEYLEN_COMPONENTS_DECODER=
KEYLEN_COMPONENTS_REPORTERS=
KEYLEN_COMPONENTS_WRITER=

# 组件 Options（原样 JSON）
KEYLEN_OPTIONS_READER_JSON=
KEYLEN_OPTIONS_DECODER_JSON=
KEYLEN_OPTIONS_WRITER_JSON=
KEYLEN_OPTIONS_REPORTER__CHART_JSON=
`

// writeDotEnv 生成 .env 模板；文件已存在时跳过。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(dotenvTemplate)
	return err
}

// preflightCheckOutputDir: fs writer 时启动前检查输出目录可写性。
// 目录存在则试写临时文件；不存在则检查父目录可创建子目录。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := strings.TrimSpace(cfg.Components.Writer)
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		// 交给装配阶段按实现报错
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(dir)
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
