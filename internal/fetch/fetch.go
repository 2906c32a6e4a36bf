package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/ytcourse/internal/browser"
	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/duration"
	"github.com/John-Robertt/ytcourse/internal/extract"
	"github.com/John-Robertt/ytcourse/internal/infra/snapshot"
	"github.com/John-Robertt/ytcourse/internal/logx"
	"github.com/John-Robertt/ytcourse/internal/playlist"
)

const (
	DefaultContentTimeout = 60 * time.Second
	DefaultScrollDelay    = time.Second
	DefaultMaxScrollSteps = 500
)

// 每次滚动一个视口高度，返回滚动后的位置；位置不再前进即认为懒加载结束。
const scrollStepExpr = `(() => { window.scrollBy(0, window.innerHeight); return Math.round(window.scrollY || document.documentElement.scrollTop || 0); })()`

type Options struct {
	Thumbnail extract.ThumbnailPolicy

	AutoScroll     bool
	ScrollDelay    time.Duration
	MaxScrollSteps int

	ContentTimeout time.Duration
	EmptyPlaylist  EmptyPlaylistPolicy

	// ResolveFirstVideoDate=false 时跳过第二次导航（FirstEpisodeDate 保持缺失）。
	ResolveFirstVideoDate bool
}

// DefaultOptions 与历史行为一致：滚动加载、60s 等待、解析首集发布日期。
func DefaultOptions() Options {
	return Options{
		Thumbnail:             extract.ThumbnailDerive,
		AutoScroll:            true,
		ScrollDelay:           DefaultScrollDelay,
		MaxScrollSteps:        DefaultMaxScrollSteps,
		ContentTimeout:        DefaultContentTimeout,
		EmptyPlaylist:         EmptyPlaylistFail,
		ResolveFirstVideoDate: true,
	}
}

// ParseEmptyPlaylistPolicy 校验配置值；空串返回默认 fail。
func ParseEmptyPlaylistPolicy(s string) (EmptyPlaylistPolicy, error) {
	switch EmptyPlaylistPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", EmptyPlaylistFail:
		return EmptyPlaylistFail, nil
	case EmptyPlaylistAllow:
		return EmptyPlaylistAllow, nil
	default:
		return "", fmt.Errorf("empty_playlist 只能是 fail 或 allow，实际是 %q", s)
	}
}

// Fetcher 执行单个播放列表的抓取状态机。
//
// 约束：
// - 串行：一次只处理一个播放列表，会话独占且在返回前关闭（成功/失败路径都一样）
// - 不重试、不限速
// - 失败时只返回错误，不返回部分结果
type Fetcher struct {
	Driver    browser.Driver
	Opts      Options
	Log       *zap.Logger
	Snapshots *snapshot.Store

	// OnTransition 在每次状态迁移时调用（可为 nil）。
	OnTransition func(playlistID string, from, to State)

	// sleep 可在测试中替换，避免真实等待。
	sleep func(ctx context.Context, d time.Duration) error
}

func New(d browser.Driver, opts Options, log *zap.Logger) *Fetcher {
	return &Fetcher{Driver: d, Opts: opts, Log: log}
}

type run struct {
	f     *Fetcher
	id    string
	state State
	log   *zap.Logger
}

// to 推进状态；终态之后的迁移一律忽略，保证观察者看到的序列以 Done/Failed 结尾。
func (r *run) to(next State) {
	prev := r.state
	if prev.Terminal() {
		r.log.Debug("ignore transition after terminal state", zap.String("from", prev.String()), zap.String("to", next.String()))
		return
	}
	r.state = next
	r.log.Debug("state", zap.String("from", prev.String()), zap.String("to", next.String()))
	if r.f.OnTransition != nil {
		r.f.OnTransition(r.id, prev, next)
	}
}

func (r *run) fail(kind, err error) error {
	fe := &Error{PlaylistID: r.id, State: r.state, Kind: kind, Err: err}
	r.to(StateFailed)
	r.log.Error("playlist fetch failed",
		zap.String("state", fe.State.String()),
		zap.String("kind", kind.Error()),
		zap.Error(err),
	)
	return fe
}

// Fetch 抓取并聚合一个播放列表。返回 error 时 PlaylistSummary 必为零值。
func (f *Fetcher) Fetch(ctx context.Context, playlistID string) (domain.PlaylistSummary, error) {
	r := &run{
		f:     f,
		id:    playlistID,
		state: StateInit,
		log:   logx.OrNop(f.Log).With(zap.String("playlist_id", playlistID)),
	}
	sum, err := f.fetch(ctx, r)
	if err != nil {
		return domain.PlaylistSummary{}, err
	}
	return sum, nil
}

func (f *Fetcher) fetch(ctx context.Context, r *run) (domain.PlaylistSummary, error) {
	opts := f.Opts
	if f.Driver == nil {
		return domain.PlaylistSummary{}, r.fail(ErrNavigation, fmt.Errorf("browser driver 为空"))
	}

	sess, err := f.Driver.Open(ctx)
	if err != nil {
		return domain.PlaylistSummary{}, r.fail(ErrNavigation, fmt.Errorf("启动浏览器失败：%w", err))
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warn("close browser session", zap.Error(cerr))
		}
	}()

	// Init → PageLoaded
	if err := sess.Navigate(ctx, playlist.PlaylistURL(r.id)); err != nil {
		return domain.PlaylistSummary{}, r.fail(ErrNavigation, err)
	}
	r.to(StatePageLoaded)

	// PageLoaded → ContentReady
	if opts.AutoScroll {
		if err := f.autoScroll(ctx, sess); err != nil {
			return domain.PlaylistSummary{}, r.fail(ErrEvaluate, fmt.Errorf("滚动加载失败：%w", err))
		}
	}
	timeout := opts.ContentTimeout
	if timeout <= 0 {
		timeout = DefaultContentTimeout
	}
	if err := sess.WaitForSelector(ctx, extract.RowSelector, timeout); err != nil {
		if opts.EmptyPlaylist != EmptyPlaylistAllow || ctx.Err() != nil {
			return domain.PlaylistSummary{}, r.fail(ErrContentTimeout, err)
		}
		r.log.Warn("no playlist rows before timeout, treating as empty playlist", zap.Duration("timeout", timeout))
	}
	r.to(StateContentReady)

	// ContentReady → Extracted
	html, err := browser.DocumentHTML(ctx, sess)
	if err != nil {
		return domain.PlaylistSummary{}, r.fail(ErrEvaluate, err)
	}
	f.writeSnapshot(r, snapshot.KindPlaylist, r.id, html)

	res, err := extract.Playlist(html, opts.Thumbnail)
	if err != nil {
		return domain.PlaylistSummary{}, r.fail(ErrEvaluate, fmt.Errorf("解析页面失败：%w", err))
	}
	sum := domain.PlaylistSummary{
		PlaylistID:    r.id,
		VideoCount:    res.VideoCount,
		Videos:        res.Videos,
		TotalDuration: duration.OfVideos(res.Videos),
	}
	if len(res.Videos) > 0 {
		sum.FirstVideoURL = res.Videos[0].URL
	}
	r.to(StateExtracted)

	// Extracted → FirstVideoDateResolved
	if opts.ResolveFirstVideoDate && sum.FirstVideoURL != nil {
		if err := sess.Navigate(ctx, *sum.FirstVideoURL); err != nil {
			return domain.PlaylistSummary{}, r.fail(ErrNavigation, fmt.Errorf("打开首个视频失败：%w", err))
		}
		page, err := browser.DocumentHTML(ctx, sess)
		if err != nil {
			return domain.PlaylistSummary{}, r.fail(ErrEvaluate, err)
		}
		if id := domain.Deref(res.Videos[0].VideoID); id != "" {
			f.writeSnapshot(r, snapshot.KindVideo, id, page)
		}
		date, err := extract.PublishDate(page)
		if err != nil {
			return domain.PlaylistSummary{}, r.fail(ErrEvaluate, fmt.Errorf("解析视频页面失败：%w", err))
		}
		sum.FirstEpisodeDate = date
		r.to(StateFirstVideoDateResolved)
	}

	r.to(StateDone)
	r.log.Info("playlist fetched",
		zap.Int("videos", sum.VideoCount),
		zap.String("total_duration", sum.TotalDuration),
		zap.String("first_episode_date", domain.Deref(sum.FirstEpisodeDate)),
	)
	return sum, nil
}

// autoScroll 以一个视口高度为步长滚动，步间固定延迟，直到滚动位置不再前进（或达到步数上限）。
func (f *Fetcher) autoScroll(ctx context.Context, sess browser.Session) error {
	delay := f.Opts.ScrollDelay
	if delay < 0 {
		delay = 0
	}
	maxSteps := f.Opts.MaxScrollSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxScrollSteps
	}

	last := -1.0
	for i := 0; i < maxSteps; i++ {
		var pos float64
		if err := sess.Evaluate(ctx, scrollStepExpr, &pos); err != nil {
			return err
		}
		if pos <= last {
			return nil
		}
		last = pos
		if err := f.doSleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) doSleep(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) writeSnapshot(r *run, kind, id string, html []byte) {
	if f.Snapshots == nil {
		return
	}
	if err := f.Snapshots.Write(kind, id, html); err != nil {
		r.log.Warn("write snapshot", zap.String("kind", kind), zap.Error(err))
	}
}
