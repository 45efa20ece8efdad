package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StaffType 인력 구분（상주/비상주/프로젝트）
type StaffType string

const (
	StaffResident    StaffType = "resident"     // 상주
	StaffNonResident StaffType = "non_resident" // 비상주
	StaffProject     StaffType = "project"      // 프로젝트
)

// Valid 是否为已知的人力类型
func (t StaffType) Valid() bool {
	switch t {
	case StaffResident, StaffNonResident, StaffProject:
		return true
	}
	return false
}

// BaseType 对比基准
type BaseType string

const (
	BaseWeek    BaseType = "week"     // 一周前
	BaseMonth   BaseType = "month"    // 30 天前
	BaseYearEnd BaseType = "year_end" // 上年 12 月 31 日
)

// AllBaseTypes 差异计算的执行顺序
var AllBaseTypes = []BaseType{BaseWeek, BaseMonth, BaseYearEnd}

// ParseBaseType 解析基准类型，空串视为 week
func ParseBaseType(s string) (BaseType, bool) {
	switch BaseType(s) {
	case "", BaseWeek:
		return BaseWeek, true
	case BaseMonth:
		return BaseMonth, true
	case BaseYearEnd:
		return BaseYearEnd, true
	}
	return "", false
}

// DateLayout 报告日期的存储格式
const DateLayout = "2006-01-02"

// NaturalKey 记录的业务主键
type NaturalKey struct {
	CompanyName string
	ProjectName string
	ReportDate  time.Time
	StaffType   StaffType
}

// Diff 相对某个基准的人数变化
type Diff struct {
	BaseType          BaseType        `json:"baseType"`
	BaselineDate      time.Time       `json:"baselineDate"`
	PreviousHeadcount int             `json:"previousHeadcount"`
	HeadcountChange   int             `json:"headcountChange"`
	ChangeRate        decimal.Decimal `json:"changeRate"`
	BaselineFound     bool            `json:"baselineFound"`
}

// WorkforceRecord 人力现况记录（规范化后的最小单元）
type WorkforceRecord struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"companyName"`
	ProjectName string    `json:"projectName"`
	StaffType   StaffType `json:"staffType"`
	Headcount   int       `json:"headcount"`
	ReportDate  time.Time `json:"reportDate"`

	// 派生字段，仅由差异引擎写入
	BaseType          BaseType        `json:"baseType,omitempty"`
	PreviousHeadcount int             `json:"previousHeadcount"`
	HeadcountChange   int             `json:"headcountChange"`
	ChangeRate        decimal.Decimal `json:"changeRate"`

	SourceFile string    `json:"sourceFile,omitempty"`
	UploadID   string    `json:"uploadId,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Key 返回记录的业务主键
func (r *WorkforceRecord) Key() NaturalKey {
	return NaturalKey{
		CompanyName: r.CompanyName,
		ProjectName: r.ProjectName,
		ReportDate:  DateOnly(r.ReportDate),
		StaffType:   r.StaffType,
	}
}

// ApplyDiff 将某个基准的差异写入记录的派生字段
func (r *WorkforceRecord) ApplyDiff(d Diff) {
	r.BaseType = d.BaseType
	r.PreviousHeadcount = d.PreviousHeadcount
	r.HeadcountChange = d.HeadcountChange
	r.ChangeRate = d.ChangeRate
}

// DateOnly 截断到日期（UTC 零点）
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
