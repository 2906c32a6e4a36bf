package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/fetch"
	"github.com/John-Robertt/ytcourse/internal/logx"
	"github.com/John-Robertt/ytcourse/internal/playlist"
)

// Fetcher 抓取单个播放列表；失败时不返回部分结果。
type Fetcher interface {
	Fetch(ctx context.Context, playlistID string) (domain.PlaylistSummary, error)
}

// Merger 顺序处理目录中的每个条目，并在全部处理完后一次性写回。
//
// 约束：
// - 严格串行：一个播放列表抓取并合并完成后才开始下一个
// - 单条失败只影响该条目（原样保留），不会中断批量
// - 只在最后落盘一次；落盘失败是整次运行的致命错误
type Merger struct {
	Path    string
	Labels  domain.LabelSet
	Fetcher Fetcher

	Log      *zap.Logger
	Observer Observer

	// NewRunID 可在测试中替换；默认 uuid v4。
	NewRunID func() string
}

// Run 执行一次批量同步。返回的 RunReport 总是可输出的；error 只表示批量级致命错误
// （目录无法读取或无法写回），此时 RunReport.ErrorCode 也会被填充。
func (m *Merger) Run(ctx context.Context) (domain.RunReport, error) {
	started := time.Now()
	runID := m.runID()
	log := logx.OrNop(m.Log).With(zap.String("run_id", runID))

	rr := domain.RunReport{
		RunID:       runID,
		CatalogPath: m.Path,
		StartedAt:   started,
	}

	cat, err := Load(m.Path)
	if err != nil {
		log.Error("load catalog", zap.String("path", m.Path), zap.Error(err))
		return finish(rr, domain.ErrCodeCatalogInvalid, err), err
	}

	total := cat.Len()
	rr.Items = make([]domain.ItemResult, 0, total)
	log.Info("sync started", zap.String("path", m.Path), zap.Int("courses", total))
	if m.Observer != nil {
		m.Observer.OnStart(runID, total, m.Path)
	}

	idKey := m.Labels.Key(domain.FieldPlaylistID)
	for i := 0; i < total; i++ {
		oneStarted := time.Now()
		res := m.mergeOne(ctx, log, cat, i, total, idKey)
		rr.Items = append(rr.Items, res)
		if m.Observer != nil {
			m.Observer.OnItemDone(i+1, total, res, time.Since(oneStarted))
		}
	}

	if err := cat.Save(); err != nil {
		log.Error("persist catalog", zap.String("path", m.Path), zap.Error(err))
		return finish(rr, domain.ErrCodePersistFailed, err), err
	}
	rr.Persisted = true

	rr = finish(rr, "", nil)
	log.Info("sync finished",
		zap.Int("processed", rr.Summary.Processed),
		zap.Int("skipped", rr.Summary.Skipped),
		zap.Int("failed", rr.Summary.Failed),
	)
	return rr, nil
}

func (m *Merger) mergeOne(ctx context.Context, log *zap.Logger, cat *Catalog, i, total int, idKey string) domain.ItemResult {
	item := domain.ItemResult{Index: i, Status: domain.StatusProcessed}

	raw, ok := cat.PlaylistID(i, idKey)
	if !ok {
		item.Status = domain.StatusSkipped
		item.ErrorCode = domain.ErrCodeMissingPlaylistID
		item.ErrorMsg = "条目缺少播放列表 id 字段（" + idKey + "）"
		log.Warn("course without playlist id", zap.Int("index", i))
		return item
	}
	item.PlaylistID = raw

	id, err := playlist.ParseID(raw)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeInvalidPlaylistID
		item.ErrorMsg = err.Error()
		log.Warn("invalid playlist id", zap.Int("index", i), zap.String("playlist_id", raw))
		return item
	}
	item.PlaylistID = id

	if m.Observer != nil {
		m.Observer.OnItemStart(i+1, total, id)
	}

	if m.Fetcher == nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeFetchFailed
		item.ErrorMsg = "fetcher 为空"
		return item
	}
	sum, err := m.Fetcher.Fetch(ctx, id)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = fetch.ErrorCode(err)
		item.ErrorMsg = humanizeFetchError(err)
		return item
	}

	if err := cat.Apply(i, m.Labels, sum); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeMergeFailed
		item.ErrorMsg = err.Error()
		log.Error("merge course", zap.Int("index", i), zap.String("playlist_id", id), zap.Error(err))
		return item
	}

	item.VideoCount = sum.VideoCount
	item.TotalDuration = sum.TotalDuration
	item.FirstEpisodeDate = domain.Deref(sum.FirstEpisodeDate)
	return item
}

// humanizeFetchError 给出可操作的提示；原始错误保留在末尾便于排查。
func humanizeFetchError(err error) string {
	switch {
	case fetch.IsContentTimeout(err):
		return fmt.Sprintf("等待播放列表内容超时（页面未渲染出任何视频行，播放列表可能为空/私有/不存在）。可调大 content_timeout，或设置 empty_playlist=allow：%v", err)
	case fetch.IsNavigation(err):
		return fmt.Sprintf("页面加载失败。建议检查网络或配置 proxy.url 后重试：%v", err)
	case fetch.IsEvaluate(err):
		return fmt.Sprintf("读取页面内容失败（站点结构可能变化）：%v", err)
	default:
		return err.Error()
	}
}

func (m *Merger) runID() string {
	if m.NewRunID != nil {
		return m.NewRunID()
	}
	return uuid.NewString()
}

func finish(rr domain.RunReport, code string, err error) domain.RunReport {
	if err != nil {
		rr.ErrorCode = code
		rr.ErrorMsg = err.Error()
	}
	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr
}
