package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"helmsman/internal/logger"
	"helmsman/internal/pkg/convert"
)

// Override 是单个币种的策略参数覆盖，零值字段表示沿用全局配置。
type Override struct {
	MinScore            int     `yaml:"min_score"`
	RiskPct             float64 `yaml:"risk_pct"`
	TrailingActivatePct float64 `yaml:"trailing_activate_pct"`
	TrailingDistancePct float64 `yaml:"trailing_distance_pct"`
	PartialClosePct     float64 `yaml:"partial_close_pct"`
	PartialCloseRatio   float64 `yaml:"partial_close_ratio"`
}

type fileConfig struct {
	Symbols map[string]map[string]any `yaml:"symbols"`
}

// Snapshot 是某一时刻全部覆盖项的只读视图。
type Snapshot struct {
	Version   int64
	LoadedAt  time.Time
	Overrides map[string]Override
}

type ChangeListener func(Snapshot)

// Registry 管理按币种的参数覆盖文件，文件变更时热重载。
// 覆盖项先过 jsonschema 校验再生效，坏文件保留上一份快照。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// overrideSchema 约束覆盖文件里每个币种条目的键与取值范围。
var overrideSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"min_score":             map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		"risk_pct":              map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 0.2},
		"trailing_activate_pct": map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 1},
		"trailing_distance_pct": map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 0.1},
		"partial_close_pct":     map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 1},
		"partial_close_ratio":   map[string]any{"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
	},
}

// NewRegistry 读取覆盖文件并监听后续更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("profile reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前覆盖集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Lookup 返回指定币种的覆盖项。
func (r *Registry) Lookup(symbol string) (Override, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ov, ok := r.snapshot.Overrides[strings.ToUpper(strings.TrimSpace(symbol))]
	return ov, ok
}

// Subscribe 注册重载回调，回调在独立 goroutine 中执行。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	schema, err := compileSchema(overrideSchema)
	if err != nil {
		return fmt.Errorf("profile schema compile failed: %w", err)
	}
	overrides := make(map[string]Override)
	for symbol, raw := range cfg.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if err := schema.Validate(sanitizeParams(raw)); err != nil {
			return fmt.Errorf("profile %s 校验失败: %w", symbol, err)
		}
		overrides[symbol] = overrideFromMap(raw)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:   r.snapshot.Version + 1,
		LoadedAt:  time.Now(),
		Overrides: overrides,
	}
	r.mu.Unlock()
	logger.Infof("Profile registry loaded %d overrides from %s", len(overrides), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("profile listener")
			cb(snap)
		}(fn)
	}
}

func overrideFromMap(raw map[string]any) Override {
	return Override{
		MinScore:            int(convert.ToFloat64(raw["min_score"])),
		RiskPct:             convert.ToFloat64(raw["risk_pct"]),
		TrailingActivatePct: convert.ToFloat64(raw["trailing_activate_pct"]),
		TrailingDistancePct: convert.ToFloat64(raw["trailing_distance_pct"]),
		PartialClosePct:     convert.ToFloat64(raw["partial_close_pct"]),
		PartialCloseRatio:   convert.ToFloat64(raw["partial_close_ratio"]),
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:   src.Version,
		LoadedAt:  src.LoadedAt,
		Overrides: make(map[string]Override, len(src.Overrides)),
	}
	for sym, ov := range src.Overrides {
		dst.Overrides[sym] = ov
	}
	return dst
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readProfileFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read profile config failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse profile config failed: %w", err)
	}
	return cfg, nil
}

// sanitizeParams 把字符串形式的数字转成 float64，便于 yaml 宽松写法通过 schema 校验。
func sanitizeParams(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeParams(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeParams(child)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if f, ok := convert.ParseFloat(s); ok {
			return f
		}
		return val
	default:
		return val
	}
}
