package main

import (
	"testing"
)

func TestParseArgs_Playlist(t *testing.T) {
	ca, err := parseArgs("playlist", []string{"PLabc", "--out", "x.json", "--labels=en", "--headful=false"}, true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.Playlist != "PLabc" || ca.OutputPath != "x.json" || ca.Labels != "en" {
		t.Fatalf("解析结果不符合预期：%+v", ca)
	}
	if !ca.HeadfulSet || ca.Headful {
		t.Fatalf("--headful=false 应被记录为显式指定：%+v", ca)
	}
}

func TestParseArgs_Sync(t *testing.T) {
	ca, err := parseArgs("sync", []string{"--catalog", "c.json", "--thumbnail", "first-image", "--headful"}, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.CatalogPath != "c.json" || ca.Thumbnail != "first-image" || !ca.Headful {
		t.Fatalf("解析结果不符合预期：%+v", ca)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := []struct {
		name       string
		args       []string
		positional bool
	}{
		{"缺少播放列表", nil, true},
		{"重复播放列表", []string{"a", "b"}, true},
		{"sync 不接受位置参数", []string{"a"}, false},
		{"sync 不支持 --out", []string{"--out", "x"}, false},
		{"playlist 不支持 --catalog", []string{"PL1", "--catalog", "x"}, true},
		{"缺少值", []string{"--labels"}, false},
		{"空值", []string{"--labels="}, false},
		{"非法 headful", []string{"--headful=yes"}, false},
		{"未知参数", []string{"--apply"}, false},
	}
	for _, c := range cases {
		if _, err := parseArgs("cmd", c.args, c.positional); err == nil {
			t.Fatalf("%s：期望错误", c.name)
		}
	}
}
