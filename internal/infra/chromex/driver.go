package chromex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/John-Robertt/ytcourse/internal/browser"
)

const defaultNavigationTimeout = 60 * time.Second

// Options 控制无头浏览器的启动与导航行为。
type Options struct {
	Headful   bool
	ExecPath  string
	ProxyURL  string
	UserAgent string
	// NoSandbox 以 --no-sandbox 启动；容器内以 root 运行 Chrome 时需要。
	NoSandbox bool

	// NavigationTimeout 是单次导航（含等待网络平静）的上限；<=0 使用默认 60s。
	NavigationTimeout time.Duration
}

var _ browser.Driver = Driver{}

// Driver 用 chromedp 驱动本机 Chrome/Chromium。
// 每次 Open 启动一个独立的浏览器进程，Close 时连同进程一起回收。
type Driver struct {
	Opts Options
}

func (d Driver) Open(ctx context.Context) (browser.Session, error) {
	lc, err := newLaunchConfig(d.Opts)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, lc.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// 空 Run 会真正拉起浏览器；失败时立即回收，避免残留进程。
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, err
	}

	navTimeout := d.Opts.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}
	return &session{
		tab:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		navTimeout:  navTimeout,
	}, nil
}

type session struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration

	closeOnce sync.Once
	closeErr  error
}

// callContext 派生一次调用用的 chromedp context：
// 同时受 timeout 与调用方 ctx 的取消约束（调用方取消时立即中断浏览器操作）。
func (s *session) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tab, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tab)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Navigate 打开 url 并等待这次导航的主文档进入 networkAlmostIdle
// （最多 2 个进行中的请求持续 500ms）。
func (s *session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.callContext(ctx, s.navTimeout)
	defer cancel()

	idle := newIdleTracker()
	chromedp.ListenTarget(runCtx, idle.observe)

	var (
		frameID  cdp.FrameID
		loaderID cdp.LoaderID
	)
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var (
			errText string
			err     error
		)
		frameID, loaderID, errText, err = page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("导航失败：%s", errText)
		}
		return nil
	}))
	if err != nil {
		return err
	}
	// 同文档导航（只改 fragment）没有新的 loader，也不会有新的网络活动。
	if loaderID == "" {
		return nil
	}
	return idle.wait(runCtx, frameID, loaderID)
}

func (s *session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := s.callContext(ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *session) Evaluate(ctx context.Context, expr string, out any) error {
	runCtx, cancel := s.callContext(ctx, 0)
	defer cancel()
	if out == nil {
		var discard any
		out = &discard
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, out))
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		// Cancel 会优雅关闭浏览器并等待进程退出。
		s.closeErr = chromedp.Cancel(s.tab)
		s.cancelTab()
		s.cancelAlloc()
	})
	return s.closeErr
}
