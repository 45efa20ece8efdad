package parser

import (
	"strconv"
	"strings"
	"time"
)

// CellKind 单元格值类型
type CellKind int

const (
	CellBlank CellKind = iota
	CellString
	CellNumber
	CellDate
)

// Cell 单元格（字符串/数字/日期/空白）
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell 创建文本单元格，空白串视为空单元格
func TextCell(s string) Cell {
	s = NormalizeText(s)
	if s == "" {
		return Cell{Kind: CellBlank}
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell 创建数字单元格
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// DateCell 创建日期单元格
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t, Text: t.Format("2006-01-02")}
}

// IsBlank 是否为空
func (c Cell) IsBlank() bool {
	return c.Kind == CellBlank
}

// Grid 单个 sheet 的二维单元格网格，仅在扫描期间存在
type Grid struct {
	Sheet string
	Rows  [][]Cell
}

// Len 行数
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Rows)
}

// At 取单元格，越界返回空单元格
func (g *Grid) At(row, col int) Cell {
	if g == nil || row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return Cell{Kind: CellBlank}
	}
	return g.Rows[row][col]
}

// Text 取单元格文本
func (g *Grid) Text(row, col int) string {
	return g.At(row, col).Text
}

// Strings 返回前 maxRows 行的文本形式（maxRows<=0 表示全部）
func (g *Grid) Strings(maxRows int) [][]string {
	n := g.Len()
	if maxRows > 0 && maxRows < n {
		n = maxRows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(g.Rows[i]))
		for j, c := range g.Rows[i] {
			row[j] = c.Text
		}
		out[i] = row
	}
	return out
}

// GridFromStrings 由字符串二维数组构建网格，数字/日期文本自动识别
func GridFromStrings(sheet string, rows [][]string) *Grid {
	g := &Grid{Sheet: sheet, Rows: make([][]Cell, len(rows))}
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = inferCell(v)
		}
		g.Rows[i] = cells
	}
	return g
}

var textDateLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// inferCell 从文本推断单元格类型（xls 与测试数据使用）
func inferCell(s string) Cell {
	c := TextCell(s)
	if c.IsBlank() {
		return c
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(c.Text, ",", ""), 64); err == nil {
		return NumberCell(f)
	}
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, c.Text); err == nil {
			return DateCell(t)
		}
	}
	return c
}

// Workbook 已加载的工作簿
type Workbook struct {
	Path   string
	Sheets []*Grid
}

// Sheet 按名称查找 sheet
func (w *Workbook) Sheet(name string) *Grid {
	for _, g := range w.Sheets {
		if g.Sheet == name {
			return g
		}
	}
	return nil
}

// First 第一个 sheet
func (w *Workbook) First() *Grid {
	if w == nil || len(w.Sheets) == 0 {
		return nil
	}
	return w.Sheets[0]
}
