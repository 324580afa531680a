package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"

	"keylen/internal/pipeline"
	"keylen/pkg/contract"
	"keylen/pkg/registry"
)

// validate 复用同一实例（内部缓存结构体元数据）；字段名取 json 标签。
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate 静态校验：结构体标签规则 + 跨字段规则 + 组件注册检查。
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			if fe.Param() != "" {
				return fmt.Errorf("config: %s fails %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
			}
			return fmt.Errorf("config: %s fails %s (got %v)", field, fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		switch strings.TrimSpace(r) {
		case "":
			return errors.New("config: input path cannot be empty")
		case "-":
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if t := cfg.Analysis.Threshold; t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0)) {
		return fmt.Errorf("config: analysis.threshold must be finite: %w", contract.ErrInvalidInput)
	}

	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered (have %s)", name, strings.Join(registry.Names(registry.Reader), ", "))
	}
	if name := effName(cfg.Components.Decoder, d.Components.Decoder); registry.Decoder[name] == nil {
		return fmt.Errorf("config: decoder %q not registered (have %s)", name, strings.Join(registry.Names(registry.Decoder), ", "))
	}
	for _, name := range effReporters(cfg) {
		if registry.Reporter[name] == nil {
			return fmt.Errorf("config: reporter %q not registered (have %s)", name, strings.Join(registry.Names(registry.Reporter), ", "))
		}
	}
	for name := range cfg.Options.Reporters {
		if registry.Reporter[name] == nil {
			return fmt.Errorf("config: options for unknown reporter %q", name)
		}
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered (have %s)", name, strings.Join(registry.Names(registry.Writer), ", "))
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	dn := effName(cfg.Components.Decoder, d.Components.Decoder)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reader: %w", err)
	}
	dec, err := registry.Decoder[dn](cfg.Options.Decoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.decoder: %w", err)
	}
	var reps []contract.Reporter
	for _, name := range effReporters(cfg) {
		rep, err := registry.Reporter[name](cfg.Options.Reporters[name])
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reporters.%s: %w", name, err)
		}
		reps = append(reps, rep)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.writer: %w", err)
	}

	comp := pipeline.Components{Reader: r, Decoder: dec, Reporters: reps, Writer: w}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		Workers:     EffectiveWorkers(cfg.Workers),
		MaxPeriod:   cfg.Analysis.MaxPeriod,
	}
	if t := cfg.Analysis.Threshold; t != nil {
		v := *t
		set.Threshold = &v
	}
	return comp, set, nil
}

// EffectiveWorkers: 0 → GOMAXPROCS。
func EffectiveWorkers(n int) int {
	if n == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

func effReporters(cfg Config) []string {
	if len(cfg.Components.Reporters) == 0 {
		return Defaults().Components.Reporters
	}
	return cfg.Components.Reporters
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
