package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/ytcourse/internal/catalog"
	"github.com/John-Robertt/ytcourse/internal/config"
	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/fetch"
	"github.com/John-Robertt/ytcourse/internal/infra/chromex"
	"github.com/John-Robertt/ytcourse/internal/infra/fsx"
	"github.com/John-Robertt/ytcourse/internal/infra/snapshot"
	"github.com/John-Robertt/ytcourse/internal/logx"
	"github.com/John-Robertt/ytcourse/internal/playlist"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	var code int
	switch args[0] {
	case "playlist":
		code = playlistCmd(args[1:])
	case "sync":
		code = syncCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

// cmdArgs 是两个子命令共用的参数；不适用的参数在解析时拒绝。
type cmdArgs struct {
	Playlist string

	ConfigPath  string
	CatalogPath string
	OutputPath  string
	Labels      string
	Thumbnail   string
	LogLevel    string

	Headful    bool
	HeadfulSet bool
}

func (a cmdArgs) cli() config.CLIArgs {
	return config.CLIArgs{
		ConfigPath:  a.ConfigPath,
		CatalogPath: a.CatalogPath,
		OutputPath:  a.OutputPath,
		Labels:      a.Labels,
		Thumbnail:   a.Thumbnail,
		Headful:     a.Headful,
		HeadfulSet:  a.HeadfulSet,
		LogLevel:    a.LogLevel,
	}
}

// parseArgs 解析子命令参数。positional=true 时要求且只接受一个位置参数（播放列表 ID/链接）。
func parseArgs(cmd string, args []string, positional bool) (cmdArgs, error) {
	var ca cmdArgs

	valueFlags := map[string]*string{
		"--config":    &ca.ConfigPath,
		"--labels":    &ca.Labels,
		"--thumbnail": &ca.Thumbnail,
		"--log-level": &ca.LogLevel,
	}
	if positional {
		valueFlags["--out"] = &ca.OutputPath
	} else {
		valueFlags["--catalog"] = &ca.CatalogPath
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		name, val, hasVal := strings.Cut(a, "=")
		if dst, ok := valueFlags[name]; ok {
			if !hasVal {
				if i+1 >= len(args) {
					return cmdArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				val = args[i]
			}
			if strings.TrimSpace(val) == "" {
				return cmdArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			*dst = val
			continue
		}

		switch {
		case a == "--headful":
			ca.Headful = true
			ca.HeadfulSet = true
		case strings.HasPrefix(a, "--headful="):
			switch v := strings.TrimPrefix(a, "--headful="); v {
			case "true":
				ca.Headful = true
			case "false":
				ca.Headful = false
			default:
				return cmdArgs{}, fmt.Errorf("--headful 只能是 true 或 false，实际是 %q", v)
			}
			ca.HeadfulSet = true
		case strings.HasPrefix(a, "-"):
			return cmdArgs{}, fmt.Errorf("%s 不支持参数 %q", cmd, a)
		default:
			if !positional {
				return cmdArgs{}, fmt.Errorf("%s 不接受位置参数：%q", cmd, a)
			}
			if ca.Playlist != "" {
				return cmdArgs{}, fmt.Errorf("重复的播放列表：%q 与 %q", ca.Playlist, a)
			}
			ca.Playlist = a
		}
	}

	if positional && ca.Playlist == "" {
		return cmdArgs{}, fmt.Errorf("缺少播放列表 ID 或链接")
	}
	return ca, nil
}

func playlistCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printPlaylistUsage()
			return 0
		}
	}
	ca, err := parseArgs("playlist", args, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printPlaylistUsage()
		return 2
	}
	id, err := playlist.ParseID(ca.Playlist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
		return 2
	}

	eff, code := loadConfig(ca)
	if code != 0 {
		return code
	}
	log, err := logx.New(eff.LogLevel, eff.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := newFetcher(eff, log)
	progressW, interactive := pickProgressWriter()
	var ui *progressUI
	if interactive {
		ui = newProgressUI(progressW, eff, "playlist")
		f.OnTransition = ui.OnTransition
		ui.OnStart("", 1, eff.OutputPath)
		ui.OnItemStart(1, 1, id)
	}

	started := time.Now()
	sum, err := f.Fetch(ctx, id)
	if ui != nil {
		ui.OnItemDone(1, 1, singleResult(id, sum, err), time.Since(started))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "抓取失败：%v\n", err)
		return 1
	}

	b, err := catalog.EncodeSummary(eff.Labels, sum)
	if err != nil {
		fmt.Fprintf(os.Stderr, "编码结果失败：%v\n", err)
		return 1
	}
	if err := fsx.WriteFile(eff.OutputPath, b); err != nil {
		fmt.Fprintf(os.Stderr, "写入 %s 失败：%v\n", eff.OutputPath, err)
		return 1
	}

	line := fmt.Sprintf("完成：videos=%d total_duration=%s first_episode_date=%s out=%s\n",
		sum.VideoCount, sum.TotalDuration, orDash(domain.Deref(sum.FirstEpisodeDate)), eff.OutputPath,
	)
	if isTTY(os.Stdout) {
		fmt.Fprint(os.Stdout, line)
		return 0
	}
	// stdout 非 TTY：stdout 只输出结果 JSON（与落盘内容一致），摘要走 stderr。
	_, _ = os.Stdout.Write(b)
	fmt.Fprint(os.Stderr, line)
	return 0
}

func syncCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printSyncUsage()
			return 0
		}
	}
	ca, err := parseArgs("sync", args, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printSyncUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	eff, err := config.LoadEffective(cwd, ca.cli())
	if err != nil {
		emitReport(reportForConfigError(cwd, ca, err))
		return 1
	}

	log, err := logx.New(eff.LogLevel, eff.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := newFetcher(eff, log)
	m := &catalog.Merger{
		Path:    eff.CatalogPath,
		Labels:  eff.Labels,
		Fetcher: f,
		Log:     log,
	}

	progressW, interactive := pickProgressWriter()
	if interactive {
		ui := newProgressUI(progressW, eff, "sync")
		f.OnTransition = ui.OnTransition
		m.Observer = ui
	}

	rr, err := m.Run(ctx)
	emitReport(rr)
	if err != nil {
		return 1
	}
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

func loadConfig(ca cmdArgs) (config.EffectiveConfig, int) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return config.EffectiveConfig{}, 1
	}
	eff, err := config.LoadEffective(cwd, ca.cli())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return config.EffectiveConfig{}, 1
	}
	return eff, 0
}

func newFetcher(eff config.EffectiveConfig, log *zap.Logger) *fetch.Fetcher {
	f := fetch.New(chromex.Driver{Opts: eff.Browser}, eff.Fetch, log)
	f.Snapshots = snapshot.New(eff.SnapshotDir)
	return f
}

func singleResult(id string, sum domain.PlaylistSummary, err error) domain.ItemResult {
	res := domain.ItemResult{PlaylistID: id, Status: domain.StatusProcessed}
	if err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = fetch.ErrorCode(err)
		res.ErrorMsg = err.Error()
		return res
	}
	res.VideoCount = sum.VideoCount
	res.TotalDuration = sum.TotalDuration
	res.FirstEpisodeDate = domain.Deref(sum.FirstEpisodeDate)
	return res
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ytcourse playlist <id|url> [--out path] [选项]
  ytcourse sync [--catalog path] [选项]

命令：
  playlist  抓取单个播放列表，写入 JSON（默认 playlistDetails.json）
  sync      按目录文件（默认 salasil.json）逐个抓取并合并写回

使用 "ytcourse <命令> --help" 查看详细说明。
`)
}

const commonFlagsUsage = `  --labels     输出字段名：ar|en（默认 ar）
  --thumbnail  缩略图策略：derive|first-image（默认 derive）
  --headful    显示浏览器窗口；支持 --headful=false 覆盖配置
  --config     配置文件路径（默认读取 ./ytcourse.json，可选）
  --log-level  debug|info|warn|error
  -h, --help   显示帮助
`

func printPlaylistUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ytcourse playlist <id|url> [--out path] [选项]

参数：
  --out        输出文件（默认 playlistDetails.json）
`+commonFlagsUsage)
}

func printSyncUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ytcourse sync [--catalog path] [选项]

参数：
  --catalog    目录文件（默认 salasil.json），格式为 {"courses":[...]}
`+commonFlagsUsage)
}

func emitReport(rr domain.RunReport) {
	summary := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d persisted=%v\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Persisted,
	)

	if isTTY(os.Stdout) {
		fmt.Fprint(os.Stdout, summary)
		if rr.ErrorCode != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.PlaylistID
			if key == "" {
				key = fmt.Sprintf("#%d", it.Index)
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprint(os.Stderr, summary)
}

func reportForConfigError(cwd string, ca cmdArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	path := ca.CatalogPath
	if path == "" {
		path = config.DefaultCatalogPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	rr := domain.RunReport{
		CatalogPath: filepath.Clean(path),
		StartedAt:   now,
		FinishedAt:  now,
		ErrorCode:   config.Code(err),
		ErrorMsg:    err.Error(),
	}
	if rr.ErrorCode == "" {
		rr.ErrorCode = domain.ErrCodeConfigInvalid
	}
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
