package chromex

import (
	"errors"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// launchConfig 是规范化后的浏览器启动参数（与 chromedp 选项一一对应，便于测试）。
type launchConfig struct {
	Headless  bool
	ExecPath  string
	ProxyURL  string
	UserAgent string
	NoSandbox bool
}

// newLaunchConfig 校验并补全启动参数：
// - proxy 非空时必须是 scheme://host 形式
// - UserAgent 为空时从内置 UA 池随机取一个（每个会话一次）
func newLaunchConfig(o Options) (launchConfig, error) {
	lc := launchConfig{
		Headless:  !o.Headful,
		ExecPath:  strings.TrimSpace(o.ExecPath),
		ProxyURL:  strings.TrimSpace(o.ProxyURL),
		UserAgent: strings.TrimSpace(o.UserAgent),
		NoSandbox: o.NoSandbox,
	}
	if lc.ProxyURL != "" {
		u, err := url.Parse(lc.ProxyURL)
		if err != nil {
			return launchConfig{}, err
		}
		if u.Scheme == "" || u.Host == "" {
			return launchConfig{}, errors.New("proxy.url 必须形如 scheme://host:port")
		}
	}
	if lc.UserAgent == "" {
		lc.UserAgent = globalUA.random()
	}
	return lc, nil
}

func (lc launchConfig) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !lc.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if lc.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(lc.ExecPath))
	}
	if lc.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(lc.ProxyURL))
	}
	if lc.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	opts = append(opts,
		chromedp.UserAgent(lc.UserAgent),
		chromedp.WindowSize(1280, 2000),
	)
	return opts
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 只放桌面 Chrome UA：移动端 UA 会拿到结构不同的播放列表页面。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
