package fsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// WriteError 表示原子写入在某一步失败；目标文件保持写入前的内容。
type WriteError struct {
	Path string
	Op   string // "mkdir" / "create" / "write" / "sync" / "rename"
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("写入 %q 失败（%s）：%v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFile 原子替换 path（临时文件 + rename）。
func WriteFile(path string, data []byte) error {
	path = filepath.Clean(path)
	return WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), data)
}

// WriteFileAtomicReplace 在 dir 下原子写入并覆盖 name。
//
// - 临时文件与目标同目录，保证 rename 的原子性
// - 目标已存在时沿用其权限位，否则使用 0644
// - 任一步失败都会清理临时文件，目标文件不会处于半写状态
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	dst := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dst, Op: "mkdir", Err: err}
	}

	perm := os.FileMode(0o644)
	if fi, err := os.Stat(dst); err == nil && fi.Mode().IsRegular() {
		perm = fi.Mode().Perm()
	}

	// 前缀带 '.'，避免临时文件被当成数据文件。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return &WriteError{Path: dst, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return &WriteError{Path: dst, Op: "write", Err: err}
	}
	if err := tmp.Chmod(perm); err != nil {
		return &WriteError{Path: dst, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &WriteError{Path: dst, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: dst, Op: "sync", Err: err}
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return &WriteError{Path: dst, Op: "rename", Err: err}
	}

	// 目录 fsync：best-effort。
	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
