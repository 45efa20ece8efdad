package parser

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// LoadWorkbook 读取整个工作簿（.xls 走 BIFF 解析，其余按 xlsx 处理）
func LoadWorkbook(path string) (*Workbook, error) {
	return loadWorkbook(path, 0)
}

// LoadSample 读取第一个 sheet 的前 maxRows 行文本，用于文件分类
func LoadSample(path string, maxRows int) ([][]string, error) {
	wb, err := loadWorkbook(path, maxRows)
	if err != nil {
		return nil, err
	}
	first := wb.First()
	if first == nil {
		return nil, nil
	}
	return first.Strings(maxRows), nil
}

func loadWorkbook(path string, maxRows int) (*Workbook, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return loadXLS(path, maxRows)
	}
	return loadXLSX(path, maxRows)
}

func loadXLSX(path string, maxRows int) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrFileUnreadable)
	}

	wb := &Workbook{Path: path}
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %s: %v", ErrFileUnreadable, name, err)
		}
		if maxRows > 0 && len(rows) > maxRows {
			rows = rows[:maxRows]
		}
		r := &xlsxReader{file: f, sheet: name, dateStyles: map[int]bool{}}
		g := &Grid{Sheet: name, Rows: make([][]Cell, len(rows))}
		for i, row := range rows {
			cells := make([]Cell, len(row))
			for j, raw := range row {
				cells[j] = r.cell(i, j, raw)
			}
			g.Rows[i] = cells
		}
		wb.Sheets = append(wb.Sheets, g)
		if maxRows > 0 {
			break
		}
	}
	return wb, nil
}

// xlsxReader 负责把原始值还原为带类型的单元格
type xlsxReader struct {
	file       *excelize.File
	sheet      string
	dateStyles map[int]bool
}

func (r *xlsxReader) cell(row, col int, raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{Kind: CellBlank}
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return TextCell(raw)
	}

	if typ, err := r.file.GetCellType(r.sheet, axis); err == nil {
		switch typ {
		case excelize.CellTypeDate:
			for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, raw); err == nil {
					return DateCell(t)
				}
			}
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
			return TextCell(raw)
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return TextCell(raw)
	}
	if r.isDateStyled(axis) {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return DateCell(t)
		}
	}
	return NumberCell(f)
}

// isDateStyled 判断数字单元格是否使用了日期格式
func (r *xlsxReader) isDateStyled(axis string) bool {
	styleID, err := r.file.GetCellStyle(r.sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	if v, ok := r.dateStyles[styleID]; ok {
		return v
	}
	isDate := false
	if style, err := r.file.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt)
		if !isDate && style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	r.dateStyles[styleID] = isDate
	return isDate
}

// 内置日期格式 ID（ECMA-376 18.8.30）
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47) || (id >= 27 && id <= 36) || (id >= 50 && id <= 58)
}

func isDateFormatCode(code string) bool {
	code = strings.ToLower(code)
	// 去掉引号内的字面量
	var b strings.Builder
	quoted := false
	for _, r := range code {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			b.WriteRune(r)
		}
	}
	code = b.String()
	return strings.Contains(code, "yy") || (strings.Contains(code, "m") && strings.Contains(code, "d"))
}

func loadXLS(path string, maxRows int) (wb *Workbook, err error) {
	// extrame/xls 对损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("%w: xls decode panic: %v", ErrFileUnreadable, r)
		}
	}()

	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	if book.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrFileUnreadable)
	}

	wb = &Workbook{Path: path}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			if maxRows > 0 && r >= maxRows {
				break
			}
			row := sheet.Row(r)
			if row == nil {
				// 保持行号与原表一致
				rows = append(rows, nil)
				continue
			}
			cols := make([]string, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cols[c] = row.Col(c)
			}
			rows = append(rows, cols)
		}
		wb.Sheets = append(wb.Sheets, GridFromStrings(sheet.Name, rows))
		if maxRows > 0 {
			break
		}
	}
	return wb, nil
}
