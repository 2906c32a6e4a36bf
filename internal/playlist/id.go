package playlist

import (
	"net/url"
	"regexp"
	"strings"
)

// SiteOrigin 是解析相对链接时使用的固定站点源。
const SiteOrigin = "https://www.youtube.com"

const thumbnailHost = "http://img.youtube.com"

// 播放列表 ID：字母数字 + '-' + '_'（PL/UU/OLAK5uy_/RD... 前缀长度各异，不做前缀白名单）。
var idRE = regexp.MustCompile(`^[A-Za-z0-9_-]{2,64}$`)

type InvalidIDError struct {
	Input string
}

func (e *InvalidIDError) Error() string {
	if strings.TrimSpace(e.Input) == "" {
		return "播放列表 ID 不能为空"
	}
	return "无法解析播放列表 ID：" + e.Input
}

// ParseID 接受裸 ID 或带 list 参数的链接（playlist / watch 页面均可），返回规范化后的 ID。
func ParseID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &InvalidIDError{Input: input}
	}
	if idRE.MatchString(s) {
		return s, nil
	}

	if strings.Contains(s, "list=") {
		base, _ := url.Parse(SiteOrigin + "/")
		ref, err := url.Parse(s)
		if err == nil {
			list := base.ResolveReference(ref).Query().Get("list")
			if idRE.MatchString(list) {
				return list, nil
			}
		}
	}
	return "", &InvalidIDError{Input: input}
}

// PlaylistURL 返回播放列表页面地址。
func PlaylistURL(id string) string {
	return SiteOrigin + "/playlist?list=" + url.QueryEscape(id)
}

// WatchURL 返回视频页面地址（只由 videoID 决定）。
func WatchURL(videoID string) string {
	return SiteOrigin + "/watch?v=" + videoID
}

// ThumbnailURL 返回固定模板的缩略图地址（只由 videoID 决定）。
func ThumbnailURL(videoID string) string {
	return thumbnailHost + "/vi/" + videoID + "/sddefault.jpg"
}

// VideoIDFromHref 把行内链接（通常是 "/watch?v=...&list=..."）相对站点源解析，取出 v 参数。
// 链接缺失/畸形/无 v 参数时返回 ("", false)。
func VideoIDFromHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	base, err := url.Parse(SiteOrigin + "/")
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	v := base.ResolveReference(ref).Query().Get("v")
	if v == "" {
		return "", false
	}
	return v, true
}
