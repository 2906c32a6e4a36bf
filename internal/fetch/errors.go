package fetch

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/ytcourse/internal/domain"
)

// 错误分类（errors.Is 可判定）。
// 字段缺失不是错误：它只会让对应字段为 nil。
var (
	// ErrNavigation：页面加载失败或网络未能在时限内平静（也包括浏览器无法启动）。
	ErrNavigation = errors.New("navigation failed")
	// ErrContentTimeout：期望的行元素始终没有出现。
	ErrContentTimeout = errors.New("content timeout")
	// ErrEvaluate：页面内执行脚本/读取 HTML 失败。
	ErrEvaluate = errors.New("evaluate failed")
)

// Error 是单个播放列表抓取失败的可追溯错误。
// State 是失败发生时所处的状态（失败后状态机进入 Failed）。
type Error struct {
	PlaylistID string
	State      State
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("playlist=%s state=%s: %v: %v", e.PlaylistID, e.State, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target != nil && target == e.Kind }

func IsNavigation(err error) bool { return errors.Is(err, ErrNavigation) }

func IsContentTimeout(err error) bool { return errors.Is(err, ErrContentTimeout) }

func IsEvaluate(err error) bool { return errors.Is(err, ErrEvaluate) }

// ErrorCode 把抓取错误映射为报告中的 error_code。
func ErrorCode(err error) string {
	switch {
	case IsNavigation(err):
		return domain.ErrCodeNavigationFailed
	case IsContentTimeout(err):
		return domain.ErrCodeContentTimeout
	case IsEvaluate(err):
		return domain.ErrCodeEvaluateFailed
	default:
		return domain.ErrCodeFetchFailed
	}
}
