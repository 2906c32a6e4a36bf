package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/fetch"
)

type stubFetcher struct {
	results map[string]domain.PlaylistSummary
	calls   []string
	hook    func(id string)
}

func (s *stubFetcher) Fetch(ctx context.Context, id string) (domain.PlaylistSummary, error) {
	s.calls = append(s.calls, id)
	if s.hook != nil {
		s.hook(id)
	}
	sum, ok := s.results[id]
	if !ok {
		return domain.PlaylistSummary{}, &fetch.Error{
			PlaylistID: id,
			State:      fetch.StateInit,
			Kind:       fetch.ErrNavigation,
			Err:        errors.New("net::ERR_CONNECTION_RESET"),
		}
	}
	return sum, nil
}

type recordObserver struct {
	starts  int
	total   int
	started []string
	done    []domain.ItemResult
}

func (o *recordObserver) OnStart(runID string, total int, catalogPath string) {
	o.starts++
	o.total = total
}

func (o *recordObserver) OnItemStart(idx, total int, playlistID string) {
	o.started = append(o.started, playlistID)
}

func (o *recordObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	o.done = append(o.done, res)
}

func okSummary(id string) domain.PlaylistSummary {
	return domain.PlaylistSummary{
		PlaylistID: id,
		VideoCount: 3,
		Videos: []domain.VideoRecord{
			{Title: domain.Str("1"), Duration: domain.Str("3:00")},
			{Title: domain.Str("2")},
			{Title: domain.Str("3"), Duration: domain.Str("1:00:00")},
		},
		TotalDuration:    "01:03:00",
		FirstEpisodeDate: domain.Str("2020-05-01"),
	}
}

func TestMerger_FailedEntryUntouched(t *testing.T) {
	labels := mustLabels(t, "ar")
	idKey := labels.Key(domain.FieldPlaylistID)
	videosKey := labels.Key(domain.FieldVideos)

	compact := `{"courses":[` +
		`{"title":"first","` + idKey + `":"PLok","` + videosKey + `":[]},` +
		`{"title":"second","` + idKey + `":"PLbad","` + videosKey + `":[{"x":1}],"note":"keep & me"}` +
		`],"version":2}`
	path, in := writeCatalog(t, t.TempDir(), compact)

	f := &stubFetcher{results: map[string]domain.PlaylistSummary{"PLok": okSummary("PLok")}}
	obs := &recordObserver{}
	m := &Merger{
		Path:     path,
		Labels:   labels,
		Fetcher:  f,
		Observer: obs,
		NewRunID: func() string { return "run-1" },
	}

	rr, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rr.RunID != "run-1" || !rr.Persisted {
		t.Fatalf("RunReport 不符合预期：%+v", rr)
	}
	if rr.Summary != (domain.ReportSummary{Processed: 1, Failed: 1}) {
		t.Fatalf("summary 不符合预期：%+v", rr.Summary)
	}
	if rr.Items[1].ErrorCode != domain.ErrCodeNavigationFailed {
		t.Fatalf("失败条目错误码不符合预期：%+v", rr.Items[1])
	}
	if rr.Items[0].TotalDuration != "01:03:00" || rr.Items[0].VideoCount != 3 {
		t.Fatalf("成功条目结果不符合预期：%+v", rr.Items[0])
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取结果失败：%v", err)
	}

	if got, want := gjson.GetBytes(out, "courses.1").Raw, gjson.GetBytes(in, "courses.1").Raw; got != want {
		t.Fatalf("失败条目应逐字节保持不变：\ngot=%s\nwant=%s", got, want)
	}
	if gjson.GetBytes(out, "version").Int() != 2 {
		t.Fatalf("顶层其他字段应保留")
	}

	first := gjson.GetBytes(out, "courses.0")
	if n := len(first.Get(gjson.Escape(videosKey)).Array()); n != 3 {
		t.Fatalf("成功条目的视频列表应被覆盖：%d", n)
	}
	if got := first.Get(gjson.Escape(labels.Key(domain.FieldCourseTotal))).String(); got != "01:03:00" {
		t.Fatalf("总时长不符合预期：%q", got)
	}
	if got := first.Get(gjson.Escape(labels.Key(domain.FieldCourseEpisodeCount))).Int(); got != 3 {
		t.Fatalf("集数不符合预期：%d", got)
	}
	if got := first.Get(gjson.Escape(labels.Key(domain.FieldFirstEpisodeDate))).String(); got != "2020-05-01" {
		t.Fatalf("首集日期不符合预期：%q", got)
	}

	if obs.starts != 1 || obs.total != 2 {
		t.Fatalf("OnStart 不符合预期：starts=%d total=%d", obs.starts, obs.total)
	}
	if !reflect.DeepEqual(obs.started, []string{"PLok", "PLbad"}) || len(obs.done) != 2 {
		t.Fatalf("条目事件不符合预期：started=%v done=%d", obs.started, len(obs.done))
	}
	if !reflect.DeepEqual(f.calls, []string{"PLok", "PLbad"}) {
		t.Fatalf("应按顺序逐个抓取：%v", f.calls)
	}
}

func TestMerger_SkipsEntriesWithoutID(t *testing.T) {
	labels := mustLabels(t, "en")
	path, _ := writeCatalog(t, t.TempDir(), `{"courses":[{"name":"x"},{"playlistId":"https://www.youtube.com/playlist?list=PLurl"},{"playlistId":"bad id!"}]}`)

	f := &stubFetcher{results: map[string]domain.PlaylistSummary{"PLurl": okSummary("PLurl")}}
	rr, err := (&Merger{Path: path, Labels: labels, Fetcher: f}).Run(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if rr.Items[0].Status != domain.StatusSkipped || rr.Items[0].ErrorCode != domain.ErrCodeMissingPlaylistID {
		t.Fatalf("缺少 id 的条目应 skipped：%+v", rr.Items[0])
	}
	if rr.Items[1].Status != domain.StatusProcessed || rr.Items[1].PlaylistID != "PLurl" {
		t.Fatalf("URL 形式的 id 应被规范化：%+v", rr.Items[1])
	}
	if rr.Items[2].Status != domain.StatusFailed || rr.Items[2].ErrorCode != domain.ErrCodeInvalidPlaylistID {
		t.Fatalf("非法 id 应 failed：%+v", rr.Items[2])
	}
	if !reflect.DeepEqual(f.calls, []string{"PLurl"}) {
		t.Fatalf("只有合法 id 才会触发抓取：%v", f.calls)
	}
}

func TestMerger_PersistenceErrorIsFatal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	path, _ := writeCatalog(t, dir, `{"courses":[{"playlistId":"PLok"}]}`)

	// 抓取期间把目录替换成普通文件，使最后的写回必然失败。
	f := &stubFetcher{
		results: map[string]domain.PlaylistSummary{"PLok": okSummary("PLok")},
		hook: func(string) {
			_ = os.RemoveAll(dir)
			_ = os.WriteFile(dir, []byte("x"), 0o644)
		},
	}

	core, logs := observer.New(zapcore.InfoLevel)
	m := &Merger{Path: path, Labels: mustLabels(t, "en"), Fetcher: f, Log: zap.New(core)}
	rr, err := m.Run(context.Background())

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 PersistenceError，实际 %v", err)
	}
	if rr.Persisted || rr.ErrorCode != domain.ErrCodePersistFailed {
		t.Fatalf("RunReport 应标记落盘失败：%+v", rr)
	}
	if rr.Summary.Processed != 1 {
		t.Fatalf("条目结果仍应保留在报告中：%+v", rr.Summary)
	}
	if logs.FilterMessage("persist catalog").Len() != 1 {
		t.Fatalf("期望记录一条落盘失败日志")
	}
}

func TestMerger_LoadFailure(t *testing.T) {
	rr, err := (&Merger{Path: filepath.Join(t.TempDir(), "missing.json"), Labels: mustLabels(t, "ar")}).Run(context.Background())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("期望 LoadError，实际 %v", err)
	}
	if rr.ErrorCode != domain.ErrCodeCatalogInvalid || rr.Persisted || len(rr.Items) != 0 {
		t.Fatalf("RunReport 不符合预期：%+v", rr)
	}
	if rr.RunID == "" {
		t.Fatalf("默认应生成 run id")
	}
}
