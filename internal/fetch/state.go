package fetch

// State 是单个播放列表抓取的状态机状态。
//
//	Init → PageLoaded → ContentReady → Extracted → FirstVideoDateResolved → Done
//	任意非终态 → Failed
type State string

const (
	StateInit                   State = "init"
	StatePageLoaded             State = "page_loaded"
	StateContentReady           State = "content_ready"
	StateExtracted              State = "extracted"
	StateFirstVideoDateResolved State = "first_video_date_resolved"
	StateDone                   State = "done"
	StateFailed                 State = "failed"
)

func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

func (s State) String() string { return string(s) }

// EmptyPlaylistPolicy 决定“等不到任何行”时如何处理。
//
// 等待超时本身无法区分“还没渲染出来”和“播放列表确实为空”，因此必须显式选择：
// - fail：超时即失败（ContentTimeout），不产出结果
// - allow：超时后仍读取页面；零行视为合法的空播放列表
type EmptyPlaylistPolicy string

const (
	EmptyPlaylistFail  EmptyPlaylistPolicy = "fail"
	EmptyPlaylistAllow EmptyPlaylistPolicy = "allow"
)
