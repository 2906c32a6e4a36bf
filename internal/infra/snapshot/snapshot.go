package snapshot

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/ytcourse/internal/infra/fsx"
)

// Store 把渲染后的页面 HTML 落到 <dir>/<kind>/<id>.html，便于排查站点结构漂移。
//
// 约束：
// - 只做诊断快照，不作为缓存回读参与抓取（每次运行都重新抓取完整播放列表）
// - 写入失败不影响抓取结果，由调用方决定是否记录 warning
type Store struct {
	Dir string
}

const (
	KindPlaylist = "playlists"
	KindVideo    = "videos"
)

func New(dir string) *Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	return &Store{Dir: filepath.Clean(dir)}
}

// Path 返回快照文件的绝对路径。
func (s *Store) Path(kind, id string) (string, error) {
	k, err := cleanName(kind)
	if err != nil {
		return "", err
	}
	n, err := cleanName(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, k, n+".html"), nil
}

func (s *Store) Write(kind, id string, html []byte) error {
	path, err := s.Path(kind, id)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), html)
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func cleanName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("快照名称不能为空")
	}
	// 最小约束：避免路径穿越。
	if !nameRE.MatchString(s) {
		return "", fmt.Errorf("非法快照名称：%q", s)
	}
	return s, nil
}
