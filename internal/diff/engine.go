// Package diff 计算最新报告日各记录相对周/月/年末基准的人数变化。
package diff

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ehr/internal/model"
)

// HistoryStore 差异引擎读取历史、写回差异所需的存储能力
type HistoryStore interface {
	LatestReportDate() (time.Time, bool, error)
	ListByDate(date time.Time) ([]*model.WorkforceRecord, error)
	FindBaseline(company, project string, staff model.StaffType, onOrBefore time.Time) (*model.WorkforceRecord, error)
	SaveDiff(recordID int64, d model.Diff) error
}

var hundred = decimal.NewFromInt(100)

// BaselineDate 返回某个基准对应的日期
func BaselineDate(reportDate time.Time, base model.BaseType) time.Time {
	d := model.DateOnly(reportDate)
	switch base {
	case model.BaseWeek:
		return d.AddDate(0, 0, -7)
	case model.BaseMonth:
		return d.AddDate(0, 0, -30)
	case model.BaseYearEnd:
		return time.Date(d.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// Compute 计算差异。baseline 为 nil 表示无基准记录，当前人数全部视为新增。
func Compute(current int, baseline *int) model.Diff {
	if baseline == nil {
		rate := decimal.Zero
		if current > 0 {
			rate = hundred
		}
		return model.Diff{
			PreviousHeadcount: 0,
			HeadcountChange:   current,
			ChangeRate:        rate,
		}
	}

	prev := *baseline
	change := current - prev
	var rate decimal.Decimal
	switch {
	case prev != 0:
		rate = decimal.NewFromInt(int64(change)).Div(decimal.NewFromInt(int64(prev))).Mul(hundred).Round(2)
	case current > 0:
		rate = hundred
	default:
		rate = decimal.Zero
	}
	return model.Diff{
		PreviousHeadcount: prev,
		HeadcountChange:   change,
		ChangeRate:        rate,
		BaselineFound:     true,
	}
}

// Summary 一次差异计算的统计
type Summary struct {
	ReportDate time.Time              `json:"reportDate"`
	Records    int                    `json:"records"`
	Found      map[model.BaseType]int `json:"baselinesFound"`
	Errors     []string               `json:"errors,omitempty"`

	// record id → base type → diff
	Diffs map[int64]map[model.BaseType]model.Diff `json:"-"`
}

// Apply 把某个基准的差异写回调用方持有的记录
func (s *Summary) Apply(records []*model.WorkforceRecord, base model.BaseType) {
	for _, rec := range records {
		if d, ok := s.Diffs[rec.ID][base]; ok {
			rec.ApplyDiff(d)
		}
	}
}

// Engine 基准差异引擎
type Engine struct {
	store HistoryStore
	bases []model.BaseType
}

// NewEngine 创建引擎；默认依次计算 week、month、year_end
func NewEngine(store HistoryStore) *Engine {
	return &Engine{store: store, bases: model.AllBaseTypes}
}

// Run 对最新报告日执行全部基准计算。库中无数据时返回 nil, nil。
func (e *Engine) Run() (*Summary, error) {
	latest, ok, err := e.store.LatestReportDate()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return e.RunFor(latest)
}

// RunFor 对指定报告日执行全部基准计算；单条写入失败记入 Errors 并继续
func (e *Engine) RunFor(reportDate time.Time) (*Summary, error) {
	records, err := e.store.ListByDate(reportDate)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		ReportDate: model.DateOnly(reportDate),
		Records:    len(records),
		Found:      make(map[model.BaseType]int, len(e.bases)),
		Diffs:      make(map[int64]map[model.BaseType]model.Diff, len(records)),
	}

	for _, base := range e.bases {
		baselineDate := BaselineDate(reportDate, base)
		for _, rec := range records {
			d, err := e.diffOne(rec, base, baselineDate)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s/%s: %v", base, rec.CompanyName, rec.ProjectName, err))
				continue
			}
			if d.BaselineFound {
				summary.Found[base]++
			}
			if summary.Diffs[rec.ID] == nil {
				summary.Diffs[rec.ID] = make(map[model.BaseType]model.Diff, len(e.bases))
			}
			summary.Diffs[rec.ID][base] = d
			rec.ApplyDiff(d)
		}
	}
	return summary, nil
}

func (e *Engine) diffOne(rec *model.WorkforceRecord, base model.BaseType, baselineDate time.Time) (model.Diff, error) {
	prev, err := e.store.FindBaseline(rec.CompanyName, rec.ProjectName, rec.StaffType, baselineDate)
	if err != nil {
		return model.Diff{}, err
	}
	var baseline *int
	if prev != nil {
		baseline = &prev.Headcount
	}
	d := Compute(rec.Headcount, baseline)
	d.BaseType = base
	d.BaselineDate = baselineDate
	if err := e.store.SaveDiff(rec.ID, d); err != nil {
		return model.Diff{}, err
	}
	return d, nil
}
