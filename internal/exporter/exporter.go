package exporter

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ehr/internal/model"
)

// 导出的 sheet 名
const (
	SheetWorkforce = "인력현황"
	SheetOverseas  = "해외법인"
)

// Reader 导出所需的只读存储能力
type Reader interface {
	LatestReportDate() (time.Time, bool, error)
	ListWithDiff(date time.Time, base model.BaseType) ([]*model.WorkforceRecord, error)
	ListSnapshots(date time.Time) ([]*model.OverseasCorporationSnapshot, error)
}

// Exporter 人力现况报表导出器
type Exporter struct {
	store Reader
}

// NewExporter 创建导出器
func NewExporter(store Reader) *Exporter {
	return &Exporter{store: store}
}

// ExportOptions 导出选项
type ExportOptions struct {
	ReportDate time.Time // 零值表示最新报告日
	Progress   func(ProgressEvent)
}

// Export 生成报表：人力记录（含三种基准的增减）与海外法人快照各一张 sheet
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, time.Time, error) {
	date := opts.ReportDate
	if date.IsZero() {
		latest, ok, err := e.store.LatestReportDate()
		if err != nil {
			return nil, time.Time{}, err
		}
		if !ok {
			return nil, time.Time{}, fmt.Errorf("暂无可导出的数据")
		}
		date = latest
	}
	date = model.DateOnly(date)

	reportProgress(opts.Progress, 0, "读取人力记录")
	rows, err := e.collectRows(date)
	if err != nil {
		return nil, time.Time{}, err
	}

	reportProgress(opts.Progress, 40, "读取海外法人快照")
	snaps, err := e.store.ListSnapshots(date)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("读取海外快照失败: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetWorkforce); err != nil {
		_ = f.Close()
		return nil, time.Time{}, err
	}

	reportProgress(opts.Progress, 60, "写入 "+SheetWorkforce)
	if err := writeWorkforceSheet(f, date, rows); err != nil {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("写入 %s 失败: %w", SheetWorkforce, err)
	}

	reportProgress(opts.Progress, 80, "写入 "+SheetOverseas)
	if err := writeOverseasSheet(f, date, snaps); err != nil {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("写入 %s 失败: %w", SheetOverseas, err)
	}

	f.SetActiveSheet(0)
	reportProgress(opts.Progress, 100, "完成")
	return f, date, nil
}

// exportRow 一条记录在三种基准下的差异
type exportRow struct {
	record *model.WorkforceRecord
	diffs  map[model.BaseType]*model.WorkforceRecord
}

// collectRows 每种基准查询一次，按记录 ID 合并
func (e *Exporter) collectRows(date time.Time) ([]*exportRow, error) {
	byID := make(map[int64]*exportRow)
	var order []int64
	for _, base := range model.AllBaseTypes {
		records, err := e.store.ListWithDiff(date, base)
		if err != nil {
			return nil, fmt.Errorf("读取人力记录失败: %w", err)
		}
		for _, r := range records {
			row, ok := byID[r.ID]
			if !ok {
				row = &exportRow{record: r, diffs: make(map[model.BaseType]*model.WorkforceRecord)}
				byID[r.ID] = row
				order = append(order, r.ID)
			}
			if r.BaseType == base {
				row.diffs[base] = r
			}
		}
	}

	rows := make([]*exportRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, byID[id])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].record, rows[j].record
		if a.CompanyName != b.CompanyName {
			return a.CompanyName < b.CompanyName
		}
		if a.StaffType != b.StaffType {
			return staffOrder(a.StaffType) < staffOrder(b.StaffType)
		}
		return a.ProjectName < b.ProjectName
	})
	return rows, nil
}

func staffOrder(t model.StaffType) int {
	switch t {
	case model.StaffResident:
		return 0
	case model.StaffNonResident:
		return 1
	}
	return 2
}

var staffLabels = map[model.StaffType]string{
	model.StaffResident:    "상주",
	model.StaffNonResident: "비상주",
	model.StaffProject:     "프로젝트",
}

var baseLabels = map[model.BaseType]string{
	model.BaseWeek:    "전주",
	model.BaseMonth:   "전월",
	model.BaseYearEnd: "전년말",
}

func writeWorkforceSheet(f *excelize.File, date time.Time, rows []*exportRow) error {
	sheet := SheetWorkforce
	if err := setCellValue(f, sheet, "A1", "기준일"); err != nil {
		return err
	}
	if err := setCellValue(f, sheet, "B1", date.Format(model.DateLayout)); err != nil {
		return err
	}

	header := []interface{}{"회사", "프로젝트", "구분", "인원"}
	for _, base := range model.AllBaseTypes {
		header = append(header, baseLabels[base]+" 인원", baseLabels[base]+" 증감", baseLabels[base]+" 증감률(%)")
	}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return err
	}

	total := 0
	for i, row := range rows {
		r := row.record
		values := []interface{}{r.CompanyName, r.ProjectName, staffLabels[r.StaffType], r.Headcount}
		for _, base := range model.AllBaseTypes {
			d, ok := row.diffs[base]
			if !ok {
				values = append(values, nil, nil, nil)
				continue
			}
			values = append(values, d.PreviousHeadcount, d.HeadcountChange, rateValue(d.ChangeRate))
		}
		cell, err := excelize.CoordinatesToCellName(1, 4+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		total += r.Headcount
	}

	totalRow := 4 + len(rows)
	if err := setCellValue(f, sheet, fmt.Sprintf("A%d", totalRow), "합계"); err != nil {
		return err
	}
	if err := setCellValue(f, sheet, fmt.Sprintf("D%d", totalRow), total); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 24)
}

func writeOverseasSheet(f *excelize.File, date time.Time, snaps []*model.OverseasCorporationSnapshot) error {
	sheet := SheetOverseas
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := setCellValue(f, sheet, "A1", "기준일"); err != nil {
		return err
	}
	if err := setCellValue(f, sheet, "B1", date.Format(model.DateLayout)); err != nil {
		return err
	}

	row := 3
	for _, snap := range snaps {
		if err := setCellValue(f, sheet, fmt.Sprintf("A%d", row), snap.Corporation); err != nil {
			return err
		}
		if err := setCellValue(f, sheet, fmt.Sprintf("B%d", row), snap.TotalCount); err != nil {
			return err
		}
		row++

		// 原表区域按原格式回显；没有原表时退化为职级合计
		if len(snap.RawData) > 0 {
			for _, line := range snap.RawData {
				values := make([]interface{}, len(line))
				for i, v := range line {
					values[i] = v
				}
				if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
					return err
				}
				row++
			}
		} else {
			for _, rank := range sortedKeys(snap.RankCounts) {
				values := []interface{}{rank, snap.RankCounts[rank]}
				if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
					return err
				}
				row++
			}
		}
		row++
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rateValue(rate decimal.Decimal) float64 {
	v, _ := rate.Round(2).Float64()
	return v
}

func setCellValue(f *excelize.File, sheet, cell string, value interface{}) error {
	return f.SetCellValue(sheet, cell, value)
}
