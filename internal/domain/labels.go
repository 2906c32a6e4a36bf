package domain

import (
	"fmt"
	"sort"
	"strings"
)

// 逻辑字段名（稳定、与输出语言无关）。LabelSet 把它们映射为最终 JSON key。
const (
	FieldTitle     = "title"
	FieldVideoID   = "videoId"
	FieldThumbnail = "thumbnail"
	FieldURL       = "url"
	FieldDuration  = "duration"
	FieldDate      = "date"

	FieldVideoCount       = "videoCount"
	FieldVideos           = "videos"
	FieldTotalDuration    = "totalDuration"
	FieldFirstEpisodeDate = "firstEpisodeDate"
	FieldFirstVideoURL    = "firstVideoUrl"

	FieldPlaylistID         = "playlistId"
	FieldCourseTotal        = "courseTotalDuration"
	FieldCourseEpisodeCount = "courseEpisodeCount"
)

// VideoFields 是单条视频对象的输出顺序。
var VideoFields = []string{FieldTitle, FieldVideoID, FieldThumbnail, FieldURL, FieldDuration, FieldDate}

// LabelSet 是“逻辑字段 -> 输出 key”的映射。
// 同一套核心逻辑可以输出不同语言的字段名，只需换一套 LabelSet。
type LabelSet struct {
	Name string
	keys map[string]string
}

var builtinLabels = map[string]map[string]string{
	"ar": {
		FieldTitle:     "عنوان",
		FieldVideoID:   "معرف الفيديو",
		FieldThumbnail: "صورة مصغرة",
		FieldURL:       "رابط",
		FieldDuration:  "مدة",
		FieldDate:      "تاريخ",

		FieldVideoCount:       "عدد الفيديوهات",
		FieldVideos:           "الفيديوهات",
		FieldTotalDuration:    "المدة الإجمالية",
		FieldFirstEpisodeDate: "تاريخ أول حلقة",
		FieldFirstVideoURL:    "رابط أول فيديو",

		FieldPlaylistID:         "معرف قائمة التشغيل",
		FieldCourseTotal:        "المدة الإجمالية (بالساعات)",
		FieldCourseEpisodeCount: "عدد الحلقات",
	},
	"en": {
		FieldTitle:     FieldTitle,
		FieldVideoID:   FieldVideoID,
		FieldThumbnail: FieldThumbnail,
		FieldURL:       FieldURL,
		FieldDuration:  FieldDuration,
		FieldDate:      FieldDate,

		FieldVideoCount:       FieldVideoCount,
		FieldVideos:           FieldVideos,
		FieldTotalDuration:    FieldTotalDuration,
		FieldFirstEpisodeDate: FieldFirstEpisodeDate,
		FieldFirstVideoURL:    FieldFirstVideoURL,

		FieldPlaylistID:         FieldPlaylistID,
		FieldCourseTotal:        "totalDuration",
		FieldCourseEpisodeCount: "episodeCount",
	},
}

// DefaultLabelSet 与历史数据文件（salasil.json）保持一致。
const DefaultLabelSet = "ar"

// LabelSetNames 返回内置 LabelSet 名称（已排序）。
func LabelSetNames() []string {
	names := make([]string, 0, len(builtinLabels))
	for n := range builtinLabels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BuiltinLabels 返回内置 LabelSet。
func BuiltinLabels(name string) (LabelSet, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	m, ok := builtinLabels[name]
	if !ok {
		return LabelSet{}, false
	}
	keys := make(map[string]string, len(m))
	for k, v := range m {
		keys[k] = v
	}
	return LabelSet{Name: name, keys: keys}, true
}

// Key 返回逻辑字段对应的输出 key；未知字段原样返回。
func (l LabelSet) Key(field string) string {
	if k, ok := l.keys[field]; ok {
		return k
	}
	return field
}

// WithOverrides 覆盖部分字段的输出 key。
//
// overrides 的 key 是逻辑字段名，大小写不敏感（配置层可能会把 key 统一转成小写）。
// 覆盖后仍必须保证：同一个输出对象内的 key 不重复。
func (l LabelSet) WithOverrides(overrides map[string]string) (LabelSet, error) {
	out := LabelSet{Name: l.Name, keys: make(map[string]string, len(l.keys))}
	for k, v := range l.keys {
		out.keys[k] = v
	}
	for rawField, label := range overrides {
		field, ok := canonicalField(rawField)
		if !ok {
			return LabelSet{}, fmt.Errorf("未知字段：%q", rawField)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return LabelSet{}, fmt.Errorf("字段 %q 的 label 不能为空", field)
		}
		out.keys[field] = label
	}
	if err := out.validate(); err != nil {
		return LabelSet{}, err
	}
	return out, nil
}

func canonicalField(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for f := range builtinLabels["en"] {
		if strings.EqualFold(f, s) {
			return f, true
		}
	}
	return "", false
}

func (l LabelSet) validate() error {
	groups := [][]string{
		VideoFields,
		{FieldVideoCount, FieldVideos, FieldTotalDuration, FieldFirstEpisodeDate, FieldFirstVideoURL},
		{FieldPlaylistID, FieldVideos, FieldCourseTotal, FieldCourseEpisodeCount, FieldFirstEpisodeDate},
	}
	for _, g := range groups {
		seen := make(map[string]string, len(g))
		for _, f := range g {
			k := l.Key(f)
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("label 冲突：%q 与 %q 都映射为 %q", prev, f, k)
			}
			seen[k] = f
		}
	}
	return nil
}
