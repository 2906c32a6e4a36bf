package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/ytcourse/internal/catalog"
	"github.com/John-Robertt/ytcourse/internal/config"
	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/fetch"
)

var _ catalog.Observer = (*progressUI)(nil)

// progressUI 是交互终端的简洁进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：catalog/fetch 只发事件，CLI 决定如何展示
// - keepalive：单个播放列表可能要滚动很久，长时间无输出时定期打印当前状态
type progressUI struct {
	w    io.Writer
	eff  config.EffectiveConfig
	mode string

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int
	skip  int

	current      string
	currentState fetch.State
	itemStarted  time.Time

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig, mode string) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		mode:               mode,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(runID string, total int, path string) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.total = total

	eff := p.eff
	head := fmt.Sprintf("[%s] ytcourse %s", now.Format("15:04:05"), p.mode)
	if runID != "" {
		head += " run=" + runID
	}
	fmt.Fprintln(p.w, head)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	if p.mode == "sync" {
		fmt.Fprintf(p.w, "  catalog: %s (courses=%d)\n", path, total)
	} else {
		fmt.Fprintf(p.w, "  out: %s\n", path)
	}
	fmt.Fprintf(p.w, "  labels: %s\n", eff.Labels.Name)
	fmt.Fprintf(p.w, "  thumbnail: %s\n", eff.Fetch.Thumbnail)
	fmt.Fprintf(p.w, "  empty_playlist: %s\n", eff.Fetch.EmptyPlaylist)
	fmt.Fprintf(p.w, "  auto_scroll: %s (delay=%s)\n", onOff(eff.Fetch.AutoScroll), eff.Fetch.ScrollDelay)
	fmt.Fprintf(p.w, "  content_timeout: %s\n", eff.Fetch.ContentTimeout)
	fmt.Fprintf(p.w, "  first_video_date: %s\n", onOff(eff.Fetch.ResolveFirstVideoDate))
	fmt.Fprintf(p.w, "  browser: %s\n", browserMode(eff.Browser.Headful))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.Browser.ProxyURL))
	if eff.SnapshotDir != "" {
		fmt.Fprintf(p.w, "  snapshot_dir: %s\n", eff.SnapshotDir)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemStart(idx, total int, playlistID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = playlistID
	p.currentState = fetch.StateInit
	p.itemStarted = time.Now()

	fmt.Fprintf(p.w, "[%d/%d] %s 抓取中...\n", idx, total, playlistID)
	p.lastPrinted = time.Now()

	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

// OnTransition 接收 fetch 状态迁移，只用于 keepalive 展示（不单独打印）。
func (p *progressUI) OnTransition(playlistID string, from, to fetch.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if playlistID == p.current {
		p.currentState = to
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total
	p.current = ""

	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
	case domain.StatusFailed:
		p.fail++
	case domain.StatusSkipped:
		p.skip++
	}

	fmt.Fprintln(p.w, formatItemLine(idx, total, res, dur))
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func formatItemLine(idx, total int, res domain.ItemResult, dur time.Duration) string {
	key := res.PlaylistID
	if key == "" {
		key = fmt.Sprintf("#%d", res.Index)
	}
	switch res.Status {
	case domain.StatusFailed:
		return fmt.Sprintf("[%d/%d] %s FAIL %s: %s (%s)",
			idx, total, key, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		return fmt.Sprintf("[%d/%d] %s SKIP %s (%s)",
			idx, total, key, res.ErrorCode, formatShortDuration(dur),
		)
	default:
		return fmt.Sprintf("[%d/%d] %s OK videos=%d total=%s first=%s (%s)",
			idx, total, key, res.VideoCount, res.TotalDuration, orDash(res.FirstEpisodeDate), formatShortDuration(dur),
		)
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, p.keepaliveLineLocked(time.Now()))
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) keepaliveLineLocked(now time.Time) string {
	line := fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s",
		p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(now.Sub(p.startedAt)),
	)
	if p.current != "" {
		line += fmt.Sprintf(" current=%s state=%s (%s)", p.current, p.currentState, formatShortDuration(now.Sub(p.itemStarted)))
	}
	return line
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func browserMode(headful bool) string {
	if headful {
		return "headful"
	}
	return "headless"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
