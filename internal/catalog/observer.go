package catalog

import (
	"time"

	"github.com/John-Robertt/ytcourse/internal/domain"
)

// Observer 用于把“运行进度/条目结果”从合并流程中解耦出来。
//
// 约束：
// - catalog 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件在 Run 的单个 goroutine 中按顺序发出；实现若自带 ticker 等后台输出，需自行加锁。
type Observer interface {
	// OnStart 在目录加载成功后调用一次。
	OnStart(runID string, total int, catalogPath string)
	// OnItemStart 在开始抓取某个条目前调用（idx 从 1 开始）。
	OnItemStart(idx, total int, playlistID string)
	// OnItemDone 在条目处理完成时调用（processed/skipped/failed 都会调用）。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
