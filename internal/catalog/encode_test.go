package catalog

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/John-Robertt/ytcourse/internal/domain"
)

func TestEncodeSummary_FieldOrderAndNulls(t *testing.T) {
	labels := mustLabels(t, "en")
	sum := domain.PlaylistSummary{
		PlaylistID: "PL1",
		VideoCount: 1,
		Videos: []domain.VideoRecord{{
			Title:     domain.Str("<intro>"),
			VideoID:   domain.Str("abc"),
			Thumbnail: domain.Str("http://img.youtube.com/vi/abc/sddefault.jpg"),
			URL:       domain.Str("https://www.youtube.com/watch?v=abc"),
		}},
		TotalDuration: "00:00:00",
	}

	out, err := EncodeSummary(labels, sum)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	var keys []string
	gjson.ParseBytes(out).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	want := "videoCount|videos|firstEpisodeDate|firstVideoUrl|totalDuration"
	if strings.Join(keys, "|") != want {
		t.Fatalf("顶层 key 顺序不符合预期：%v", keys)
	}

	var vkeys []string
	gjson.GetBytes(out, "videos.0").ForEach(func(k, _ gjson.Result) bool {
		vkeys = append(vkeys, k.String())
		return true
	})
	if strings.Join(vkeys, "|") != strings.Join(domain.VideoFields, "|") {
		t.Fatalf("视频 key 顺序不符合预期：%v", vkeys)
	}

	if gjson.GetBytes(out, "videos.0.duration").Type != gjson.Null {
		t.Fatalf("缺失时长应为 null")
	}
	if gjson.GetBytes(out, "firstEpisodeDate").Type != gjson.Null {
		t.Fatalf("缺失首集日期应为 null")
	}
	if !strings.Contains(string(out), `"<intro>"`) {
		t.Fatalf("不应做 HTML 转义：%s", out)
	}
}

func TestEncodeVideos_Empty(t *testing.T) {
	out, err := EncodeVideos(mustLabels(t, "ar"), nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("空列表应编码为 []，实际 %s", out)
	}
}
