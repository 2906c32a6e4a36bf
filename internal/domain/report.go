package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	ErrCodeMissingPlaylistID = "missing_playlist_id"
	ErrCodeInvalidPlaylistID = "invalid_playlist_id"
	ErrCodeNavigationFailed  = "navigation_failed"
	ErrCodeContentTimeout    = "content_timeout"
	ErrCodeEvaluateFailed    = "evaluate_failed"
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeMergeFailed       = "merge_failed"
	ErrCodeCatalogInvalid    = "catalog_invalid"
	ErrCodePersistFailed     = "persist_failed"
	ErrCodeConfigInvalid     = "config_invalid"
)

// RunReport 是一次批量同步（sync）的对外稳定输出（stdout JSON）。
type RunReport struct {
	RunID       string `json:"run_id"`
	CatalogPath string `json:"catalog_path"`
	Persisted   bool   `json:"persisted"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Error 只记录批量级的致命错误（目录读取/落盘失败）；单条失败写在 Items 里。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ItemResult 对应 catalog 中的一条 course（Index 为其在 courses 数组中的下标）。
type ItemResult struct {
	Index      int    `json:"index"`
	PlaylistID string `json:"playlist_id"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	VideoCount       int    `json:"video_count"`
	TotalDuration    string `json:"total_duration"`
	FirstEpisodeDate string `json:"first_episode_date"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 按 index 稳定排序
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	sort.SliceStable(r.Items, func(i, j int) bool { return r.Items[i].Index < r.Items[j].Index })

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
