package model

import "time"

// OverseasCorporationSnapshot 海外法人在某一报告日的人力快照
type OverseasCorporationSnapshot struct {
	ID             int64          `json:"id"`
	Corporation    string         `json:"corporation"`
	ReportDate     time.Time      `json:"reportDate"`
	RankCounts     map[string]int `json:"rankCounts"`     // 직급별
	PositionCounts map[string]int `json:"positionCounts"` // 직책별
	RawData        [][]string     `json:"rawData"`        // 原表区域镜像，用于按原格式回显
	TotalCount     int            `json:"totalCount"`
	SourceFile     string         `json:"sourceFile,omitempty"`
	UploadID       string         `json:"uploadId,omitempty"`
}

// Normalize 按职级合计重算总人数，保存前必须调用
func (s *OverseasCorporationSnapshot) Normalize() {
	total := 0
	for _, n := range s.RankCounts {
		total += n
	}
	s.TotalCount = total
	s.ReportDate = DateOnly(s.ReportDate)
}
