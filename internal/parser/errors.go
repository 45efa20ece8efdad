package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrFileUnreadable 文件无法打开或解析
	ErrFileUnreadable = errors.New("file unreadable")
	// ErrHeaderNotFound 搜索窗口内找不到表头
	ErrHeaderNotFound = errors.New("header row not found")
	// ErrDateUnresolvable 单元格与文件名都无法给出有效日期
	ErrDateUnresolvable = errors.New("report date unresolvable")
	// ErrTemplateNotFound 海外模板中找不到任何已知法人区块
	ErrTemplateNotFound = errors.New("no known corporation block found")
)

// ScanError 结构性解析错误（整个上传失败）
type ScanError struct {
	File  string
	Sheet string
	Err   error
}

func (e *ScanError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("scan %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("scan %s [%s]: %v", e.File, e.Sheet, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
