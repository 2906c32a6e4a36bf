package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/extract"
	"github.com/John-Robertt/ytcourse/internal/fetch"
	"github.com/John-Robertt/ytcourse/internal/infra/chromex"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（可选）。
	FileName = "ytcourse.json"
	// EnvPrefix：环境变量形如 YTCOURSE_CATALOG_PATH / YTCOURSE_PROXY_URL。
	EnvPrefix = "YTCOURSE"

	DefaultCatalogPath = "salasil.json"
	DefaultOutputPath  = "playlistDetails.json"
)

// 配置 key（与 ytcourse.json 中的字段名一致；嵌套字段用 "."）。
const (
	keyCatalogPath      = "catalog_path"
	keyOutputPath       = "output_path"
	keyLabels           = "labels"
	keyLabelOverrides   = "label_overrides"
	keyThumbnailPolicy  = "thumbnail_policy"
	keyEmptyPlaylist    = "empty_playlist"
	keyAutoScroll       = "auto_scroll"
	keyScrollDelay      = "scroll_delay"
	keyMaxScrollSteps   = "max_scroll_steps"
	keyContentTimeout   = "content_timeout"
	keyNavTimeout       = "navigation_timeout"
	keyResolveFirstDate = "resolve_first_video_date"
	keyHeadless         = "headless"
	keyProxyURL         = "proxy.url"
	keyUserAgent        = "user_agent"
	keyChromePath       = "chrome_path"
	keyNoSandbox        = "no_sandbox"
	keySnapshotDir      = "snapshot_dir"
	keyLogLevel         = "log.level"
	keyLogFile          = "log.file"
)

// CLIArgs 是 CLI 暴露的覆盖项；*Set 字段保留“是否显式指定”，
// 保证 --headful=false 这类显式值也能覆盖配置文件。
type CLIArgs struct {
	ConfigPath string

	CatalogPath string
	OutputPath  string
	Labels      string
	Thumbnail   string

	Headful    bool
	HeadfulSet bool

	LogLevel string
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件；未使用配置文件时为空。
	ConfigFile string

	CatalogPath string
	OutputPath  string

	Labels  domain.LabelSet
	Fetch   fetch.Options
	Browser chromex.Options

	SnapshotDir string

	LogLevel string
	LogFile  string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置文件与环境变量，再与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/ytcourse.json（可选，不存在即全部使用默认值）
//
// 覆盖优先级（固定）：CLI > 环境变量 YTCOURSE_* > 配置文件 > 内置默认。
// 相对路径（catalog_path/output_path/snapshot_dir/log.file）以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := newViper()

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	}

	used := ""
	if _, err := os.Stat(cfgPath); err == nil {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		used = cfgPath
	} else if !os.IsNotExist(err) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	} else if required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	eff, err := merge(v, cwdAbs, cli)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: used, Err: err}
	}
	eff.ConfigFile = used
	return eff, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(keyCatalogPath, DefaultCatalogPath)
	v.SetDefault(keyOutputPath, DefaultOutputPath)
	v.SetDefault(keyLabels, domain.DefaultLabelSet)
	v.SetDefault(keyThumbnailPolicy, string(extract.ThumbnailDerive))
	v.SetDefault(keyEmptyPlaylist, string(fetch.EmptyPlaylistFail))
	v.SetDefault(keyAutoScroll, true)
	v.SetDefault(keyScrollDelay, fetch.DefaultScrollDelay.String())
	v.SetDefault(keyMaxScrollSteps, fetch.DefaultMaxScrollSteps)
	v.SetDefault(keyContentTimeout, fetch.DefaultContentTimeout.String())
	v.SetDefault(keyNavTimeout, "60s")
	v.SetDefault(keyResolveFirstDate, true)
	v.SetDefault(keyHeadless, true)
	v.SetDefault(keyProxyURL, "")
	v.SetDefault(keyUserAgent, "")
	v.SetDefault(keyChromePath, "")
	v.SetDefault(keyNoSandbox, false)
	v.SetDefault(keySnapshotDir, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFile, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func merge(v *viper.Viper, cwd string, cli CLIArgs) (EffectiveConfig, error) {
	// labels：CLI > config > 默认 ar；label_overrides 只能来自配置文件。
	labelName := v.GetString(keyLabels)
	if strings.TrimSpace(cli.Labels) != "" {
		labelName = cli.Labels
	}
	labels, ok := domain.BuiltinLabels(labelName)
	if !ok {
		return EffectiveConfig{}, fmt.Errorf("labels 只能是 %s，实际是 %q", strings.Join(domain.LabelSetNames(), " / "), labelName)
	}
	if overrides := v.GetStringMapString(keyLabelOverrides); len(overrides) > 0 {
		l, err := labels.WithOverrides(overrides)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("label_overrides 无效：%w", err)
		}
		labels = l
	}

	thumbRaw := v.GetString(keyThumbnailPolicy)
	if strings.TrimSpace(cli.Thumbnail) != "" {
		thumbRaw = cli.Thumbnail
	}
	thumb, err := extract.ParseThumbnailPolicy(thumbRaw)
	if err != nil {
		return EffectiveConfig{}, err
	}
	empty, err := fetch.ParseEmptyPlaylistPolicy(v.GetString(keyEmptyPlaylist))
	if err != nil {
		return EffectiveConfig{}, err
	}

	scrollDelay, err := durationValue(v, keyScrollDelay)
	if err != nil {
		return EffectiveConfig{}, err
	}
	contentTimeout, err := durationValue(v, keyContentTimeout)
	if err != nil {
		return EffectiveConfig{}, err
	}
	navTimeout, err := durationValue(v, keyNavTimeout)
	if err != nil {
		return EffectiveConfig{}, err
	}
	maxSteps := v.GetInt(keyMaxScrollSteps)
	if maxSteps < 1 {
		return EffectiveConfig{}, fmt.Errorf("%s 必须 >= 1，实际是 %d", keyMaxScrollSteps, maxSteps)
	}

	proxyURL := strings.TrimSpace(v.GetString(keyProxyURL))
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", proxyURL)
		}
	}

	// headful：CLI --headful/--headful=false > config headless > 默认无头
	headful := !v.GetBool(keyHeadless)
	if cli.HeadfulSet {
		headful = cli.Headful
	}

	level := v.GetString(keyLogLevel)
	if strings.TrimSpace(cli.LogLevel) != "" {
		level = cli.LogLevel
	}
	if err := validateLevel(level); err != nil {
		return EffectiveConfig{}, err
	}

	catalogPath := v.GetString(keyCatalogPath)
	if strings.TrimSpace(cli.CatalogPath) != "" {
		catalogPath = cli.CatalogPath
	}
	outputPath := v.GetString(keyOutputPath)
	if strings.TrimSpace(cli.OutputPath) != "" {
		outputPath = cli.OutputPath
	}
	if strings.TrimSpace(catalogPath) == "" {
		return EffectiveConfig{}, fmt.Errorf("%s 不能为空", keyCatalogPath)
	}
	if strings.TrimSpace(outputPath) == "" {
		return EffectiveConfig{}, fmt.Errorf("%s 不能为空", keyOutputPath)
	}

	return EffectiveConfig{
		CatalogPath: absCleanFrom(cwd, catalogPath),
		OutputPath:  absCleanFrom(cwd, outputPath),
		Labels:      labels,
		Fetch: fetch.Options{
			Thumbnail:             thumb,
			AutoScroll:            v.GetBool(keyAutoScroll),
			ScrollDelay:           scrollDelay,
			MaxScrollSteps:        maxSteps,
			ContentTimeout:        contentTimeout,
			EmptyPlaylist:         empty,
			ResolveFirstVideoDate: v.GetBool(keyResolveFirstDate),
		},
		Browser: chromex.Options{
			Headful:           headful,
			ExecPath:          strings.TrimSpace(v.GetString(keyChromePath)),
			NoSandbox:         v.GetBool(keyNoSandbox),
			ProxyURL:          proxyURL,
			UserAgent:         strings.TrimSpace(v.GetString(keyUserAgent)),
			NavigationTimeout: navTimeout,
		},
		SnapshotDir: absCleanFrom(cwd, v.GetString(keySnapshotDir)),
		LogLevel:    strings.ToLower(strings.TrimSpace(level)),
		LogFile:     absCleanFrom(cwd, v.GetString(keyLogFile)),
	}, nil
}

// durationValue 接受 Go duration 字符串（"1s"、"1m30s"）或数字秒（1、0.5）。
func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	var d time.Duration
	switch raw := v.Get(key).(type) {
	case string:
		s := strings.TrimSpace(raw)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(f * float64(time.Second))
			break
		}
		pd, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%s 无效：%q", key, raw)
		}
		d = pd
	case float64:
		d = time.Duration(raw * float64(time.Second))
	case int:
		d = time.Duration(raw) * time.Second
	case int64:
		d = time.Duration(raw) * time.Second
	default:
		return 0, fmt.Errorf("%s 类型无效：%T", key, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s 不能为负数", key)
	}
	return d, nil
}

func validateLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level 只能是 debug/info/warn/error，实际是 %q", level)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；空串保持为空。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
