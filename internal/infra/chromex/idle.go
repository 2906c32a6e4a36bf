package chromex

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

const lifecycleNetworkAlmostIdle = "networkAlmostIdle"

type frameLoader struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// idleTracker 收集 networkAlmostIdle 生命周期事件，等待时只认某次导航的 frame + loader。
//
// 约束：
// - 旧文档（上一次导航、about:blank）回放的事件 loader 不同，会被忽略
// - iframe 的事件 frame 不同，会被忽略
// - 事件可能早于 page.Navigate 返回到达，因此先记录再匹配
type idleTracker struct {
	mu     sync.Mutex
	seen   map[frameLoader]bool
	notify chan struct{}
}

func newIdleTracker() *idleTracker {
	return &idleTracker{
		seen:   map[frameLoader]bool{},
		notify: make(chan struct{}, 1),
	}
}

// observe 作为 chromedp.ListenTarget 的回调，不能阻塞。
func (t *idleTracker) observe(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != lifecycleNetworkAlmostIdle {
		return
	}
	t.mu.Lock()
	t.seen[frameLoader{frame: e.FrameID, loader: e.LoaderID}] = true
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *idleTracker) wait(ctx context.Context, frame cdp.FrameID, loader cdp.LoaderID) error {
	key := frameLoader{frame: frame, loader: loader}
	for {
		t.mu.Lock()
		ok := t.seen[key]
		t.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-t.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
