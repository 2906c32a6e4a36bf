package catalog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/John-Robertt/ytcourse/internal/domain"
	"github.com/John-Robertt/ytcourse/internal/duration"
	"github.com/John-Robertt/ytcourse/internal/infra/fsx"
)

const coursesKey = "courses"

// LoadError 表示目录文件不可用（不存在/不是合法 JSON/缺少 courses 数组）。
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("读取目录文件 %q 失败：%v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistenceError 表示合并后的目录无法写回；对整次批量运行是致命错误。
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("写回目录文件 %q 失败：%v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	errNoCourses  = errors.New("缺少 courses 数组")
	errNotObject  = errors.New("顶层必须是 JSON 对象")
	errInvalidDoc = errors.New("不是合法的 JSON")
)

// Catalog 是内存中的目录文件。
//
// 直接在原始 JSON 上按路径改写：未被合并的条目保持原有字段、顺序与字符串内容不变。
type Catalog struct {
	Path string
	raw  []byte
}

// Load 读取目录文件；整个文件一次性读入内存。
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	c, err := Parse(b)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	c.Path = path
	return c, nil
}

// Parse 校验并接管 b（调用方之后不应再修改 b）。
func Parse(b []byte) (*Catalog, error) {
	if !gjson.ValidBytes(b) {
		return nil, errInvalidDoc
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return nil, errNotObject
	}
	if !root.Get(coursesKey).IsArray() {
		return nil, errNoCourses
	}
	return &Catalog{raw: b}, nil
}

// Len 返回条目数量。
func (c *Catalog) Len() int {
	return int(gjson.GetBytes(c.raw, coursesKey+".#").Int())
}

// PlaylistID 读取第 i 个条目的播放列表 id（key 为 id 字段的输出名）。
// 条目不是对象、缺少该字段、字段不是字符串或为空白时返回 false。
func (c *Catalog) PlaylistID(i int, key string) (string, bool) {
	entry := gjson.GetBytes(c.raw, entryPath(i))
	if !entry.IsObject() {
		return "", false
	}
	v := entry.Get(gjson.Escape(key))
	if v.Type != gjson.String {
		return "", false
	}
	id := strings.TrimSpace(v.String())
	if id == "" {
		return "", false
	}
	return id, true
}

// Apply 把 sum 写回第 i 个条目：视频列表、总时长、集数、首集日期。
// 已存在的字段原位覆盖，不存在的追加到对象末尾；其余字段不动。
func (c *Catalog) Apply(i int, labels domain.LabelSet, sum domain.PlaylistSummary) error {
	if i < 0 || i >= c.Len() {
		return fmt.Errorf("条目下标越界：%d", i)
	}
	videos, err := EncodeVideos(labels, sum.Videos)
	if err != nil {
		return err
	}
	total := sum.TotalDuration
	if total == "" {
		total = duration.OfVideos(sum.Videos)
	}
	totalRaw, err := rawString(&total)
	if err != nil {
		return err
	}
	dateRaw, err := rawString(sum.FirstEpisodeDate)
	if err != nil {
		return err
	}

	// 先在副本上完成全部改写，任一步失败都不会留下半合并的条目。
	raw := c.raw
	fields := []struct {
		field string
		raw   []byte
	}{
		{domain.FieldVideos, videos},
		{domain.FieldCourseTotal, totalRaw},
		{domain.FieldCourseEpisodeCount, []byte(strconv.Itoa(sum.VideoCount))},
		{domain.FieldFirstEpisodeDate, dateRaw},
	}
	for _, f := range fields {
		path := entryPath(i) + "." + gjson.Escape(labels.Key(f.field))
		next, err := sjson.SetRawBytes(raw, path, f.raw)
		if err != nil {
			return fmt.Errorf("写入字段 %q 失败：%w", labels.Key(f.field), err)
		}
		raw = next
	}
	c.raw = raw
	return nil
}

// Bytes 返回落盘内容：2 空格缩进、UTF-8、末尾换行。
func (c *Catalog) Bytes() ([]byte, error) {
	return pretty(c.raw)
}

// Save 原子写回 Path（临时文件 + rename）；失败返回 *PersistenceError。
func (c *Catalog) Save() error {
	b, err := c.Bytes()
	if err != nil {
		return &PersistenceError{Path: c.Path, Err: err}
	}
	if err := fsx.WriteFile(c.Path, b); err != nil {
		return &PersistenceError{Path: c.Path, Err: err}
	}
	return nil
}

func entryPath(i int) string {
	return coursesKey + "." + strconv.Itoa(i)
}
