package parser

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"ehr/internal/model"
)

// MatrixResult 海外模板扫描结果
type MatrixResult struct {
	Snapshots []*model.OverseasCorporationSnapshot
	Warnings  []string
}

// MatrixScanner 按 TemplateColumnMap 逐坐标读取海外法人矩阵
type MatrixScanner struct {
	registry *TemplateRegistry
}

// NewMatrixScanner 创建矩阵扫描器
func NewMatrixScanner(registry *TemplateRegistry) *MatrixScanner {
	if registry == nil {
		registry = DefaultTemplates()
	}
	return &MatrixScanner{registry: registry}
}

// Scan 在工作簿中查找每个已知法人的区块并生成快照；一个都找不到时返回 ErrTemplateNotFound
func (s *MatrixScanner) Scan(wb *Workbook, reportDate time.Time) (*MatrixResult, error) {
	result := &MatrixResult{}
	for _, m := range s.registry.Maps() {
		g := locateBlock(wb, m)
		if g == nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: block not found", m.Corporation))
			continue
		}
		snap, warnings, err := ScanCorporation(g, m, reportDate)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", m.Corporation, err))
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Snapshots = append(result.Snapshots, snap)
	}
	if len(result.Snapshots) == 0 {
		return result, &ScanError{File: wb.Path, Err: ErrTemplateNotFound}
	}
	return result, nil
}

// locateBlock 找到锚点单元格包含该法人名称的 sheet；模板未定义锚点时取第一个 sheet
func locateBlock(wb *Workbook, m TemplateColumnMap) *Grid {
	if m.AnchorCell == "" {
		return wb.First()
	}
	col, row, err := excelize.CellNameToCoordinates(m.AnchorCell)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(m.Aliases)+1)
	for _, n := range m.Names() {
		names = append(names, strings.ToLower(CompactText(n)))
	}
	for _, g := range wb.Sheets {
		anchor := strings.ToLower(CompactText(g.Text(row-1, col-1)))
		if anchor != "" && ContainsAny(anchor, names) {
			return g
		}
	}
	return nil
}

// ScanCorporation 读取单个法人区块
func ScanCorporation(g *Grid, m TemplateColumnMap, reportDate time.Time) (*model.OverseasCorporationSnapshot, []string, error) {
	log := logrus.WithFields(logrus.Fields{"sheet": g.Sheet, "corporation": m.Corporation})

	posCols := make(map[string]int, len(m.PositionCols))
	for pos, letters := range m.PositionCols {
		n, err := excelize.ColumnNameToNumber(letters)
		if err != nil {
			return nil, nil, fmt.Errorf("position %s: %w", pos, err)
		}
		posCols[pos] = n - 1
	}

	ranks := make(map[string]int, len(m.RankRows))
	positions := make(map[string]int, len(posCols))
	for rank, excelRow := range m.RankRows {
		row := excelRow - 1
		for pos, col := range posCols {
			n := CountOrZero(g.At(row, col))
			ranks[rank] += n
			positions[pos] += n
		}
	}

	// 人数只取自 (职级, 职责) 单元格；表内合计行列仅用于核对
	var warnings []string
	mismatch := func(msg string, fields logrus.Fields) {
		log.WithFields(fields).Warn("overseas template totals disagree")
		warnings = append(warnings, m.Corporation+": "+msg)
	}
	if m.RankTotalCol != "" {
		if n, err := excelize.ColumnNameToNumber(m.RankTotalCol); err == nil {
			for _, rank := range sortedNames(m.RankRows) {
				c := g.At(m.RankRows[rank]-1, n-1)
				if c.IsBlank() {
					continue
				}
				if stated := CountOrZero(c); stated != ranks[rank] {
					mismatch(fmt.Sprintf("rank %s stated %d != cells %d", rank, stated, ranks[rank]),
						logrus.Fields{"rank": rank, "stated": stated, "cells": ranks[rank]})
				}
			}
		}
	}
	if m.PositionTotalRow > 0 {
		for _, pos := range sortedNames(posCols) {
			c := g.At(m.PositionTotalRow-1, posCols[pos])
			if c.IsBlank() {
				continue
			}
			if stated := CountOrZero(c); stated != positions[pos] {
				mismatch(fmt.Sprintf("position %s stated %d != cells %d", pos, stated, positions[pos]),
					logrus.Fields{"position": pos, "stated": stated, "cells": positions[pos]})
			}
		}
	}
	total := sumCounts(ranks)
	if m.TotalCell != "" {
		if col, row, err := excelize.CellNameToCoordinates(m.TotalCell); err == nil {
			if c := g.At(row-1, col-1); !c.IsBlank() {
				if stated := CountOrZero(c); stated != total {
					mismatch(fmt.Sprintf("stated total %d != cells %d", stated, total),
						logrus.Fields{"stated_total": stated, "cells": total})
				}
			}
		}
	}

	snap := &model.OverseasCorporationSnapshot{
		Corporation:    m.Corporation,
		ReportDate:     reportDate,
		RankCounts:     ranks,
		PositionCounts: positions,
		RawData:        rawBlock(g, m),
	}
	snap.Normalize()
	return snap, warnings, nil
}

// rawBlock 镜像原表区域：每行首列为标签列，其后为区块内各列
func rawBlock(g *Grid, m TemplateColumnMap) [][]string {
	if m.BlockRange[0] == "" || m.BlockRange[1] == "" {
		return nil
	}
	c1, r1, err1 := excelize.CellNameToCoordinates(m.BlockRange[0])
	c2, r2, err2 := excelize.CellNameToCoordinates(m.BlockRange[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	label := -1
	if m.LabelCol != "" {
		if n, err := excelize.ColumnNameToNumber(m.LabelCol); err == nil && (n < c1 || n > c2) {
			label = n - 1
		}
	}
	out := make([][]string, 0, r2-r1+1)
	for row := r1 - 1; row <= r2-1; row++ {
		line := make([]string, 0, c2-c1+2)
		if label >= 0 {
			line = append(line, g.Text(row, label))
		}
		for col := c1 - 1; col <= c2-1; col++ {
			line = append(line, g.Text(row, col))
		}
		out = append(out, line)
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func sumCounts(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
