package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/John-Robertt/ytcourse/internal/domain"
)

// 输出对象一律用 sjson 逐个 key 追加：key 顺序就是追加顺序，map 无法保证这一点。

// EncodeVideos 把视频列表编码为 JSON 数组（key 使用 labels）。
func EncodeVideos(labels domain.LabelSet, videos []domain.VideoRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range videos {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := encodeVideo(labels, videos[i])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func encodeVideo(labels domain.LabelSet, v domain.VideoRecord) ([]byte, error) {
	vals := map[string]*string{
		domain.FieldTitle:     v.Title,
		domain.FieldVideoID:   v.VideoID,
		domain.FieldThumbnail: v.Thumbnail,
		domain.FieldURL:       v.URL,
		domain.FieldDuration:  v.Duration,
		domain.FieldDate:      v.Date,
	}
	obj := []byte("{}")
	for _, f := range domain.VideoFields {
		raw, err := rawString(vals[f])
		if err != nil {
			return nil, err
		}
		if obj, err = setKey(obj, labels.Key(f), raw); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// EncodeSummary 编码单播放列表模式的输出对象（缩进 2 空格，末尾换行）。
func EncodeSummary(labels domain.LabelSet, sum domain.PlaylistSummary) ([]byte, error) {
	videos, err := EncodeVideos(labels, sum.Videos)
	if err != nil {
		return nil, err
	}
	firstDate, err := rawString(sum.FirstEpisodeDate)
	if err != nil {
		return nil, err
	}
	firstURL, err := rawString(sum.FirstVideoURL)
	if err != nil {
		return nil, err
	}
	total, err := rawString(&sum.TotalDuration)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		field string
		raw   []byte
	}{
		{domain.FieldVideoCount, []byte(strconv.Itoa(sum.VideoCount))},
		{domain.FieldVideos, videos},
		{domain.FieldFirstEpisodeDate, firstDate},
		{domain.FieldFirstVideoURL, firstURL},
		{domain.FieldTotalDuration, total},
	}
	obj := []byte("{}")
	for _, f := range fields {
		if obj, err = setKey(obj, labels.Key(f.field), f.raw); err != nil {
			return nil, err
		}
	}
	return pretty(obj)
}

// setKey 在对象末尾追加 key（已存在则原位替换）。
func setKey(obj []byte, key string, raw []byte) ([]byte, error) {
	return sjson.SetRawBytes(obj, gjson.Escape(key), raw)
}

// rawString 把可缺失字符串编码为 JSON：nil => null；不做 HTML 转义（保持与输入一致的可读性）。
func rawString(p *string) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(*p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// pretty 统一输出格式：2 空格缩进 + 末尾换行。只改空白，不改 key 顺序与字符串内容。
func pretty(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
