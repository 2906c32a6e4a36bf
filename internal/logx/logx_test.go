package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"invalid": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v，期望 %v", in, got, want)
		}
	}
}

func TestNew_WithFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := New("info", path)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	l.Info("hello")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志失败：%v", err)
	}
	if !strings.Contains(string(b), `"msg":"hello"`) {
		t.Fatalf("期望 JSON 日志，实际 %q", string(b))
	}
}

func TestNew_LevelFilters(t *testing.T) {
	l, err := New("error", "")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("error 级别下不应启用 info")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) 不应返回 nil")
	}
}
