// Package reconciler 把一次上传解析出的记录按业务主键写入存储，重复上传同一文件不会产生新行。
package reconciler

import (
	"fmt"
	"time"

	"ehr/internal/model"
)

// Repository 人力记录存储
type Repository interface {
	FindByNaturalKey(key model.NaturalKey) (*model.WorkforceRecord, error)
	Insert(rec *model.WorkforceRecord) error
	Update(rec *model.WorkforceRecord) error
}

// SnapshotRepository 海外快照存储
type SnapshotRepository interface {
	FindSnapshot(corporation string, date time.Time) (*model.OverseasCorporationSnapshot, error)
	InsertSnapshot(snap *model.OverseasCorporationSnapshot) error
	UpdateSnapshot(snap *model.OverseasCorporationSnapshot) error
}

// Action 单条记录的处理结果
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionFailed   Action = "failed"
)

// Outcome 单条记录的结果（Err 非空即失败）
type Outcome struct {
	Key    string
	Action Action
	Err    error
}

// Result 一次上传的汇总
type Result struct {
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
	Errors       []string  `json:"errors"`
	Outcomes     []Outcome `json:"-"`
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Err != nil {
		r.ErrorCount++
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", o.Key, o.Err))
		return
	}
	r.SuccessCount++
}

// Inserted 新增行数
func (r *Result) Inserted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == ActionInserted {
			n++
		}
	}
	return n
}

// Reconciler 记录对账器
type Reconciler struct {
	records   Repository
	snapshots SnapshotRepository
}

// New 创建对账器；snapshots 可为 nil（不处理海外快照）
func New(records Repository, snapshots SnapshotRepository) *Reconciler {
	return &Reconciler{records: records, snapshots: snapshots}
}

// Reconcile 逐条 upsert。单条失败不影响其余记录。
func (r *Reconciler) Reconcile(records []*model.WorkforceRecord) *Result {
	result := &Result{Errors: []string{}}
	for _, rec := range records {
		result.add(r.reconcileOne(rec))
	}
	return result
}

func (r *Reconciler) reconcileOne(rec *model.WorkforceRecord) (out Outcome) {
	out.Key = describeRecord(rec)
	defer func() {
		// 存储实现的 panic 也只影响当前记录
		if p := recover(); p != nil {
			out.Action = ActionFailed
			out.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := validateRecord(rec); err != nil {
		out.Action, out.Err = ActionFailed, err
		return out
	}
	rec.ReportDate = model.DateOnly(rec.ReportDate)

	existing, err := r.records.FindByNaturalKey(rec.Key())
	if err != nil {
		out.Action, out.Err = ActionFailed, err
		return out
	}
	if existing == nil {
		if err := r.records.Insert(rec); err != nil {
			out.Action, out.Err = ActionFailed, err
			return out
		}
		out.Action = ActionInserted
		return out
	}

	existing.Headcount = rec.Headcount
	existing.SourceFile = rec.SourceFile
	existing.UploadID = rec.UploadID
	if err := r.records.Update(existing); err != nil {
		out.Action, out.Err = ActionFailed, err
		return out
	}
	rec.ID = existing.ID
	out.Action = ActionUpdated
	return out
}

// ReconcileSnapshots 按 (法人, 报告日) upsert 海外快照
func (r *Reconciler) ReconcileSnapshots(snaps []*model.OverseasCorporationSnapshot) *Result {
	result := &Result{Errors: []string{}}
	for _, snap := range snaps {
		result.add(r.reconcileSnapshot(snap))
	}
	return result
}

func (r *Reconciler) reconcileSnapshot(snap *model.OverseasCorporationSnapshot) (out Outcome) {
	out.Key = fmt.Sprintf("%s@%s", snap.Corporation, snap.ReportDate.Format(model.DateLayout))
	if r.snapshots == nil {
		out.Action, out.Err = ActionFailed, fmt.Errorf("snapshot repository not configured")
		return out
	}
	defer func() {
		if p := recover(); p != nil {
			out.Action = ActionFailed
			out.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	snap.Normalize()
	existing, err := r.snapshots.FindSnapshot(snap.Corporation, snap.ReportDate)
	if err != nil {
		out.Action, out.Err = ActionFailed, err
		return out
	}
	if existing == nil {
		if err := r.snapshots.InsertSnapshot(snap); err != nil {
			out.Action, out.Err = ActionFailed, err
			return out
		}
		out.Action = ActionInserted
		return out
	}
	snap.ID = existing.ID
	if err := r.snapshots.UpdateSnapshot(snap); err != nil {
		out.Action, out.Err = ActionFailed, err
		return out
	}
	out.Action = ActionUpdated
	return out
}

func validateRecord(rec *model.WorkforceRecord) error {
	if rec.CompanyName == "" || rec.ProjectName == "" {
		return fmt.Errorf("company and project name are required")
	}
	if !rec.StaffType.Valid() {
		return fmt.Errorf("unknown staff type %q", rec.StaffType)
	}
	if rec.Headcount < 0 {
		return fmt.Errorf("negative headcount %d", rec.Headcount)
	}
	if rec.ReportDate.IsZero() {
		return fmt.Errorf("report date is missing")
	}
	return nil
}

func describeRecord(rec *model.WorkforceRecord) string {
	return fmt.Sprintf("%s/%s/%s/%s", rec.CompanyName, rec.ProjectName, rec.StaffType,
		rec.ReportDate.Format(model.DateLayout))
}
