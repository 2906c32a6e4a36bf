package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/playlist"
)

// RowSelector 是播放列表中每一行视频的元素类型；等待页面就绪时也用它。
const RowSelector = "ytd-playlist-video-renderer"

const (
	titleSelector       = "a#video-title"
	durationSelector    = "span.ytd-thumbnail-overlay-time-status-renderer"
	dateSelector        = "div#metadata-line span:nth-child(2)"
	imageSelector       = "img"
	publishDateSelector = `meta[itemprop="datePublished"]`
)

// ThumbnailPolicy 决定缩略图从哪里来。两种策略都合法，按部署选择其一。
type ThumbnailPolicy string

const (
	// ThumbnailDerive：每一行都由 videoID 按固定模板推导。
	ThumbnailDerive ThumbnailPolicy = "derive"
	// ThumbnailFirstImage：只有第一行有缩略图，取自该行 img 的 src。
	ThumbnailFirstImage ThumbnailPolicy = "first-image"
)

// ParseThumbnailPolicy 校验配置值；空串返回默认 derive。
func ParseThumbnailPolicy(s string) (ThumbnailPolicy, error) {
	switch ThumbnailPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ThumbnailDerive:
		return ThumbnailDerive, nil
	case ThumbnailFirstImage:
		return ThumbnailFirstImage, nil
	default:
		return "", fmt.Errorf("thumbnail_policy 只能是 derive 或 first-image，实际是 %q", s)
	}
}

// Result 是 Extractor 的输出：行数 + 按 DOM 顺序排列的记录。
type Result struct {
	VideoCount int
	Videos     []domain.VideoRecord
}

// Playlist 解析已渲染的播放列表页面 HTML。
// 纯函数：只做只读 DOM 查询；单个字段缺失只会变成 nil，不会报错。
func Playlist(html []byte, policy ThumbnailPolicy) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Result{}, err
	}
	return Rows(doc.Selection, policy), nil
}

// Rows 对任意 Selection（通常是整个文档）执行行提取，方便对构造出的片段做测试。
func Rows(root *goquery.Selection, policy ThumbnailPolicy) Result {
	rows := root.Find(RowSelector)
	out := Result{
		VideoCount: rows.Length(),
		Videos:     make([]domain.VideoRecord, 0, rows.Length()),
	}
	rows.Each(func(i int, row *goquery.Selection) {
		out.Videos = append(out.Videos, record(i, row, policy))
	})
	return out
}

func record(idx int, row *goquery.Selection, policy ThumbnailPolicy) domain.VideoRecord {
	var v domain.VideoRecord

	title := row.Find(titleSelector).First()
	if title.Length() > 0 {
		v.Title = domain.Str(strings.TrimSpace(title.Text()))
		if href, ok := title.Attr("href"); ok {
			if id, ok := playlist.VideoIDFromHref(href); ok {
				v.VideoID = domain.Str(id)
			}
		}
	}

	if v.VideoID != nil {
		v.URL = domain.Str(playlist.WatchURL(*v.VideoID))
	}

	switch policy {
	case ThumbnailFirstImage:
		if idx == 0 {
			if src, ok := row.Find(imageSelector).First().Attr("src"); ok {
				v.Thumbnail = domain.Str(src)
			}
		}
	default:
		if v.VideoID != nil {
			v.Thumbnail = domain.Str(playlist.ThumbnailURL(*v.VideoID))
		}
	}

	v.Duration = textOf(row.Find(durationSelector))
	v.Date = textOf(row.Find(dateSelector))
	return v
}

// textOf 返回第一个匹配元素的去空白文本；不存在时返回 nil。
func textOf(s *goquery.Selection) *string {
	s = s.First()
	if s.Length() == 0 {
		return nil
	}
	return domain.Str(strings.TrimSpace(s.Text()))
}

// PublishDate 从视频详情页读取发布日期元数据（绝对日期，例如 "2021-03-04"）。
func PublishDate(html []byte) (*string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	content, ok := doc.Find(publishDateSelector).First().Attr("content")
	if !ok {
		return nil, nil
	}
	return domain.Str(strings.TrimSpace(content)), nil
}
