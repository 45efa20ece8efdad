package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"ehr/internal/model"
)

// DateSource 报告日期来源
type DateSource string

const (
	DateFromCell     DateSource = "cell"
	DateFromFilename DateSource = "filename"
	DateFallback     DateSource = "fallback"
)

// DateResult 日期解析结果。Warning 非空时 Date 为兜底日期（当天），由调用方决定是否接受。
type DateResult struct {
	Date    time.Time  `json:"date"`
	Source  DateSource `json:"source"`
	Warning error      `json:"-"`
}

// Resolved 是否解析出了真实日期
func (r DateResult) Resolved() bool {
	return r.Warning == nil
}

// 前后不能紧挨其他数字，避免从 8 位日期或更长编号中截取
var filenameDateRe = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)

// DateResolver 报告日期解析器
type DateResolver struct {
	Now func() time.Time
}

// NewDateResolver 创建解析器
func NewDateResolver() *DateResolver {
	return &DateResolver{Now: time.Now}
}

// Resolve 依次尝试模板日期单元格与文件名
func (r *DateResolver) Resolve(grid *Grid, cellRef, filename string) DateResult {
	if cellRef != "" && grid != nil {
		if d, ok := DateFromGridCell(grid, cellRef); ok {
			return DateResult{Date: d, Source: DateFromCell}
		}
	}
	d, err := ParseFilenameDate(filename)
	if err == nil {
		return DateResult{Date: d, Source: DateFromFilename}
	}
	return DateResult{
		Date:    model.DateOnly(r.now()),
		Source:  DateFallback,
		Warning: err,
	}
}

func (r *DateResolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// DateFromGridCell 读取指定单元格（如 "B1"），只有日期类型的值才有效
func DateFromGridCell(grid *Grid, cellRef string) (time.Time, bool) {
	col, row, err := excelize.CellNameToCoordinates(cellRef)
	if err != nil {
		return time.Time{}, false
	}
	c := grid.At(row-1, col-1)
	if c.Kind != CellDate {
		return time.Time{}, false
	}
	return model.DateOnly(c.Time), true
}

// ParseFilenameDate 从文件名中提取 6 位日期 YY+M1+M2。
// M1 > 12 时按“日-月”解释，否则按“月-日”。两者都合法（如 070105）时无法区分，按月-日处理。
func ParseFilenameDate(filename string) (time.Time, error) {
	base := NormalizeText(filepath.Base(filename))
	m := filenameDateRe.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: no 6-digit token in %q", ErrDateUnresolvable, base)
	}
	token := m[1]
	yy, _ := strconv.Atoi(token[0:2])
	g1, _ := strconv.Atoi(token[2:4])
	g2, _ := strconv.Atoi(token[4:6])

	year := 2000 + yy
	month, day := g1, g2
	if g1 > 12 {
		day, month = g1, g2
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: token %s out of range", ErrDateUnresolvable, token)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// 2 月 30 日之类会被 time.Date 顺延，视为无效
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, fmt.Errorf("%w: token %s is not a calendar date", ErrDateUnresolvable, token)
	}
	return d, nil
}
