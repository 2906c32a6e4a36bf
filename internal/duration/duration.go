package duration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/ytcourse/internal/domain"
)

// SecondsFromTimeString 把 "1:23:45" / "12:34" 这类时长文本转为秒数。
//
// 宽松策略（不是校验关口）：
// - 3 段 => h*3600 + m*60 + s；2 段 => m*60 + s
// - 其他段数（含空串、"1:2:3:4"）=> 0
// - 任一段不是非负十进制整数 => 0
func SecondsFromTimeString(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, ok := component(p)
		if !ok {
			return 0
		}
		nums[i] = n
	}

	if len(nums) == 3 {
		return nums[0]*3600 + nums[1]*60 + nums[2]
	}
	return nums[0]*60 + nums[1]
}

func component(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TimeStringFromSeconds 输出 HH:MM:SS（各段至少两位补零）。
// 小时不按 24 取模：整个播放列表的总时长可以超过一天。负数按 0 处理。
func TimeStringFromSeconds(n int) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", n/3600, (n%3600)/60, n%60)
}

// Total 汇总秒数；缺失（nil）或无法解析的时长贡献 0，不会中断汇总。
func Total(durations []*string) int {
	total := 0
	for _, d := range durations {
		if d == nil {
			continue
		}
		total += SecondsFromTimeString(*d)
	}
	return total
}

// OfVideos 计算一组视频的总时长（HH:MM:SS）。
func OfVideos(videos []domain.VideoRecord) string {
	ds := make([]*string, 0, len(videos))
	for i := range videos {
		ds = append(ds, videos[i].Duration)
	}
	return TimeStringFromSeconds(Total(ds))
}
