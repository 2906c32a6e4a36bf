package domain

// VideoRecord 描述播放列表中的一行（一个视频）。
//
// 约束：
// - 字段缺失一律为 nil（JSON 输出为 null），不要用空串冒充缺失
// - URL 与 Thumbnail 只由 VideoID 推导；VideoID 为 nil 时两者都为 nil
//   （first-image 缩略图策略例外：Thumbnail 来自页面图片，只有第一行有值）
type VideoRecord struct {
	Title     *string
	VideoID   *string
	Thumbnail *string
	URL       *string
	Duration  *string // 原样文本，例如 "12:34" / "1:23:45"；直播/首映通常没有
	Date      *string // 相对日期，例如 "3 years ago"
}

// PlaylistSummary 是一次播放列表抓取的聚合结果。
// 抓取失败时不会产生 PlaylistSummary（不存在“部分填充”的结果）。
type PlaylistSummary struct {
	PlaylistID string

	// VideoCount 等于匹配到的行数（不做任何过滤）。
	VideoCount int
	Videos     []VideoRecord

	// TotalDuration 形如 HH:MM:SS，小时不按 24 取模。
	TotalDuration string

	// FirstEpisodeDate 来自第一个视频详情页的发布日期（绝对日期），不是列表行上的相对日期。
	FirstEpisodeDate *string
	FirstVideoURL    *string
}

// Str 返回 s 的指针，便于构造可缺失字段。
func Str(s string) *string { return &s }

// Deref 把可缺失字段转为字符串（nil => ""），只用于展示。
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
