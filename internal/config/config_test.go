package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/extract"
	"github.com/John-Robertt/ytcourse/internal/fetch"
)

func TestLoadEffective_DefaultsWithoutConfigFile(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("没有配置文件时 ConfigFile 应为空：%q", eff.ConfigFile)
	}
	if eff.CatalogPath != filepath.Join(cwd, DefaultCatalogPath) {
		t.Fatalf("catalog_path 默认值不符合预期：%q", eff.CatalogPath)
	}
	if eff.OutputPath != filepath.Join(cwd, DefaultOutputPath) {
		t.Fatalf("output_path 默认值不符合预期：%q", eff.OutputPath)
	}
	if eff.Labels.Name != domain.DefaultLabelSet {
		t.Fatalf("labels 默认值不符合预期：%q", eff.Labels.Name)
	}

	want := fetch.DefaultOptions()
	if eff.Fetch != want {
		t.Fatalf("fetch 默认值不符合预期：\ngot=%+v\nwant=%+v", eff.Fetch, want)
	}
	if eff.Browser.Headful || eff.Browser.NoSandbox || eff.Browser.NavigationTimeout != 60*time.Second {
		t.Fatalf("browser 默认值不符合预期：%+v", eff.Browser)
	}
	if eff.SnapshotDir != "" || eff.LogFile != "" || eff.LogLevel != "info" {
		t.Fatalf("诊断相关默认值不符合预期：%+v", eff)
	}
}

func TestLoadEffective_ConfigFileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
  "catalog_path": "data/courses.json",
  "labels": "en",
  "label_overrides": {"totalDuration": "total"},
  "thumbnail_policy": "first-image",
  "empty_playlist": "allow",
  "auto_scroll": false,
  "scroll_delay": 0.5,
  "content_timeout": "90s",
  "resolve_first_video_date": false,
  "headless": false,
  "proxy": {"url": "http://127.0.0.1:7890"},
  "no_sandbox": true,
  "snapshot_dir": "snap",
  "log": {"level": "debug", "file": "logs/run.log"}
}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigFile 不符合预期：%q", eff.ConfigFile)
	}
	if eff.CatalogPath != filepath.Join(cwd, "data", "courses.json") {
		t.Fatalf("相对路径应以 cwd 为基准：%q", eff.CatalogPath)
	}
	if eff.Labels.Name != "en" || eff.Labels.Key(domain.FieldTotalDuration) != "total" {
		t.Fatalf("labels 覆盖不符合预期：%q", eff.Labels.Key(domain.FieldTotalDuration))
	}
	if eff.Fetch.Thumbnail != extract.ThumbnailFirstImage || eff.Fetch.EmptyPlaylist != fetch.EmptyPlaylistAllow {
		t.Fatalf("策略配置不符合预期：%+v", eff.Fetch)
	}
	if eff.Fetch.AutoScroll || eff.Fetch.ResolveFirstVideoDate {
		t.Fatalf("布尔配置不符合预期：%+v", eff.Fetch)
	}
	if eff.Fetch.ScrollDelay != 500*time.Millisecond || eff.Fetch.ContentTimeout != 90*time.Second {
		t.Fatalf("时长配置不符合预期：%+v", eff.Fetch)
	}
	if !eff.Browser.Headful || eff.Browser.ProxyURL != "http://127.0.0.1:7890" || !eff.Browser.NoSandbox {
		t.Fatalf("browser 配置不符合预期：%+v", eff.Browser)
	}
	if eff.SnapshotDir != filepath.Join(cwd, "snap") || eff.LogFile != filepath.Join(cwd, "logs", "run.log") || eff.LogLevel != "debug" {
		t.Fatalf("诊断配置不符合预期：%+v", eff)
	}
}

func TestLoadEffective_PrecedenceCLIOverEnvOverFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"catalog_path":"file.json","labels":"ar","headless":true}`))
	t.Setenv("YTCOURSE_CATALOG_PATH", "env.json")
	t.Setenv("YTCOURSE_LABELS", "en")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.CatalogPath != filepath.Join(cwd, "env.json") || eff.Labels.Name != "en" {
		t.Fatalf("环境变量应覆盖配置文件：%q %q", eff.CatalogPath, eff.Labels.Name)
	}

	eff, err = LoadEffective(cwd, CLIArgs{
		CatalogPath: "cli.json",
		Labels:      "ar",
		Headful:     true,
		HeadfulSet:  true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.CatalogPath != filepath.Join(cwd, "cli.json") || eff.Labels.Name != "ar" {
		t.Fatalf("CLI 应覆盖环境变量：%q %q", eff.CatalogPath, eff.Labels.Name)
	}
	if !eff.Browser.Headful {
		t.Fatalf("--headful 应覆盖配置文件 headless=true")
	}
}

func TestLoadEffective_NestedEnvKey(t *testing.T) {
	cwd := t.TempDir()
	t.Setenv("YTCOURSE_PROXY_URL", "socks5://127.0.0.1:1080")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Browser.ProxyURL != "socks5://127.0.0.1:1080" {
		t.Fatalf("期望从环境变量读取 proxy.url，实际 %q", eff.Browser.ProxyURL)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "nope.json"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"broken json":      `{`,
		"unknown labels":   `{"labels":"fr"}`,
		"unknown override": `{"label_overrides":{"nope":"x"}}`,
		"label conflict":   `{"labels":"en","label_overrides":{"title":"url"}}`,
		"thumbnail":        `{"thumbnail_policy":"none"}`,
		"empty playlist":   `{"empty_playlist":"skip"}`,
		"bad duration":     `{"content_timeout":"soon"}`,
		"negative delay":   `{"scroll_delay":-1}`,
		"proxy":            `{"proxy":{"url":"127.0.0.1"}}`,
		"log level":        `{"log":{"level":"trace"}}`,
		"max steps":        `{"max_scroll_steps":0}`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))

		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_InvalidCLIValues(t *testing.T) {
	cwd := t.TempDir()

	if _, err := LoadEffective(cwd, CLIArgs{Labels: "xx"}); Code(err) != ErrCodeInvalid {
		t.Fatalf("非法 --labels 应报 %q，实际 %v", ErrCodeInvalid, err)
	}
	if _, err := LoadEffective(cwd, CLIArgs{Thumbnail: "xx"}); Code(err) != ErrCodeInvalid {
		t.Fatalf("非法 --thumbnail 应报 %q，实际 %v", ErrCodeInvalid, err)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
