package browser

import (
	"context"
	"errors"
	"time"
)

// Driver 打开一个独占的浏览器会话。
//
// 约束：
// - 每次抓取单独 Open/Close，会话不跨播放列表共享，也不是进程级全局状态
// - 核心流程只依赖 Session 的这四个能力 + Close
type Driver interface {
	Open(ctx context.Context) (Session, error)
}

type Session interface {
	// Navigate 打开 url，并等待网络活动基本平静；导航失败或超时返回错误。
	Navigate(ctx context.Context, url string) error
	// WaitForSelector 等待至少一个匹配元素出现；超过 timeout 返回错误。
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Evaluate 在页面内执行 JS 表达式，并把结果解码到 out（out 可为 nil）。
	Evaluate(ctx context.Context, expr string, out any) error
	// Close 释放会话（必须可重复调用）。
	Close() error
}

const outerHTMLExpr = `document.documentElement.outerHTML`

// DocumentHTML 读取当前已渲染文档的 HTML 快照，交给纯函数 Extractor 解析。
func DocumentHTML(ctx context.Context, s Session) ([]byte, error) {
	var html string
	if err := s.Evaluate(ctx, outerHTMLExpr, &html); err != nil {
		return nil, err
	}
	if html == "" {
		return nil, errors.New("页面 HTML 为空")
	}
	return []byte(html), nil
}
