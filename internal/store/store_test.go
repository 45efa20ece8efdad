package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ehr/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ehr.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWorkforceNaturalKeyUnique(t *testing.T) {
	s := newTestStore(t)

	rec := &model.WorkforceRecord{
		CompanyName: "OK홀딩스",
		ProjectName: "A프로젝트 (X업체)",
		StaffType:   model.StaffResident,
		Headcount:   5,
		ReportDate:  day(2025, 7, 1),
	}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("expected id to be set")
	}

	dup := *rec
	dup.ID = 0
	if err := s.Insert(&dup); err == nil {
		t.Fatalf("expected unique constraint violation")
	}

	found, err := s.FindByNaturalKey(rec.Key())
	if err != nil || found == nil {
		t.Fatalf("FindByNaturalKey: %v %v", found, err)
	}
	found.Headcount = 7
	found.SourceFile = "second.xlsx"
	if err := s.Update(found); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := s.FindByNaturalKey(rec.Key())
	if again.Headcount != 7 || again.SourceFile != "second.xlsx" {
		t.Fatalf("update not applied: %+v", again)
	}

	other := rec.Key()
	other.StaffType = model.StaffProject
	if missing, err := s.FindByNaturalKey(other); err != nil || missing != nil {
		t.Fatalf("expected nil for other staff type, got %v %v", missing, err)
	}

	if n, _ := s.CountRecords(); n != 1 {
		t.Fatalf("CountRecords=%d", n)
	}
}

func TestWorkforceRejectsNegativeHeadcount(t *testing.T) {
	s := newTestStore(t)
	err := s.Insert(&model.WorkforceRecord{
		CompanyName: "OK홀딩스",
		ProjectName: "P",
		StaffType:   model.StaffResident,
		Headcount:   -1,
		ReportDate:  day(2025, 7, 1),
	})
	if err == nil {
		t.Fatalf("expected check constraint violation")
	}
}

func TestFindBaselineAndDiffsPerBase(t *testing.T) {
	s := newTestStore(t)

	insert := func(date time.Time, staff model.StaffType, n int) *model.WorkforceRecord {
		rec := &model.WorkforceRecord{
			CompanyName: "OK저축은행",
			ProjectName: "콜센터",
			StaffType:   staff,
			Headcount:   n,
			ReportDate:  date,
		}
		if err := s.Insert(rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		return rec
	}
	insert(day(2024, 12, 31), model.StaffResident, 80)
	insert(day(2025, 6, 24), model.StaffProject, 90)
	insert(day(2025, 6, 24), model.StaffResident, 100)
	current := insert(day(2025, 7, 1), model.StaffResident, 120)

	latest, ok, err := s.LatestReportDate()
	if err != nil || !ok || !latest.Equal(day(2025, 7, 1)) {
		t.Fatalf("LatestReportDate=%v %v %v", latest, ok, err)
	}

	base, err := s.FindBaseline("OK저축은행", "콜센터", model.StaffResident, day(2025, 6, 24))
	if err != nil || base == nil || base.Headcount != 100 {
		t.Fatalf("week baseline: %+v %v", base, err)
	}
	base, _ = s.FindBaseline("OK저축은행", "콜센터", model.StaffResident, day(2025, 6, 1))
	if base == nil || base.Headcount != 80 {
		t.Fatalf("month baseline: %+v", base)
	}
	if none, _ := s.FindBaseline("OK저축은행", "콜센터", model.StaffResident, day(2024, 1, 1)); none != nil {
		t.Fatalf("expected no baseline, got %+v", none)
	}

	week := model.Diff{BaseType: model.BaseWeek, BaselineDate: day(2025, 6, 24), BaselineFound: true,
		PreviousHeadcount: 100, HeadcountChange: 20, ChangeRate: decimal.NewFromInt(20)}
	year := model.Diff{BaseType: model.BaseYearEnd, BaselineDate: day(2024, 12, 31), BaselineFound: true,
		PreviousHeadcount: 80, HeadcountChange: 40, ChangeRate: decimal.NewFromInt(50)}
	for _, d := range []model.Diff{week, year} {
		if err := s.SaveDiff(current.ID, d); err != nil {
			t.Fatalf("SaveDiff: %v", err)
		}
	}
	// 重复写入覆盖而非新增
	if err := s.SaveDiff(current.ID, week); err != nil {
		t.Fatalf("SaveDiff again: %v", err)
	}

	list, err := s.ListWithDiff(day(2025, 7, 1), model.BaseWeek)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListWithDiff week: %v %v", list, err)
	}
	if list[0].PreviousHeadcount != 100 || list[0].HeadcountChange != 20 || !list[0].ChangeRate.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("week diff: %+v", list[0])
	}
	list, _ = s.ListWithDiff(day(2025, 7, 1), model.BaseYearEnd)
	if list[0].PreviousHeadcount != 80 || !list[0].ChangeRate.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("year_end diff: %+v", list[0])
	}
	list, _ = s.ListWithDiff(day(2025, 7, 1), model.BaseMonth)
	if list[0].BaseType != "" || list[0].PreviousHeadcount != 0 {
		t.Fatalf("month diff should be empty: %+v", list[0])
	}
}

func TestSnapshotUpsert(t *testing.T) {
	s := newTestStore(t)

	snap := &model.OverseasCorporationSnapshot{
		Corporation:    "OK Capital Vietnam",
		ReportDate:     day(2025, 7, 1),
		RankCounts:     map[string]int{"부장": 1, "사원": 4},
		PositionCounts: map[string]int{"팀장": 1, "팀원": 4},
		RawData:        [][]string{{"직급", "팀장"}, {"부장", "1"}},
		TotalCount:     99,
	}
	if err := s.InsertSnapshot(snap); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
	got, err := s.FindSnapshot("OK Capital Vietnam", day(2025, 7, 1))
	if err != nil || got == nil {
		t.Fatalf("FindSnapshot: %v %v", got, err)
	}
	if got.TotalCount != 5 || got.RankCounts["사원"] != 4 || got.RawData[1][1] != "1" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	got.RankCounts["사원"] = 6
	if err := s.UpdateSnapshot(got); err != nil {
		t.Fatalf("UpdateSnapshot: %v", err)
	}
	list, err := s.ListSnapshots(day(2025, 7, 1))
	if err != nil || len(list) != 1 || list[0].TotalCount != 7 {
		t.Fatalf("ListSnapshots: %+v %v", list, err)
	}
}

func TestUploadLifecycleAndStatus(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateUpload("외주인력현황_250701.xlsx", 1024, "abc")
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if err := s.MarkUploadProcessing(id, model.FileTypeContractor); err != nil {
		t.Fatalf("MarkUploadProcessing: %v", err)
	}
	date := day(2025, 7, 1)
	if err := s.FinishUpload(id, model.UploadCompleted, 3, 2, 1, &date, ""); err != nil {
		t.Fatalf("FinishUpload: %v", err)
	}

	u, err := s.GetUpload(id)
	if err != nil || u == nil {
		t.Fatalf("GetUpload: %v %v", u, err)
	}
	if u.Status != model.UploadCompleted || u.FileType != model.FileTypeContractor ||
		u.SuccessCount != 2 || u.ErrorCount != 1 || u.ReportDate == nil || u.CompletedAt == nil {
		t.Fatalf("unexpected upload: %+v", u)
	}
	if missing, err := s.GetUpload("nope"); err != nil || missing != nil {
		t.Fatalf("expected nil upload, got %v %v", missing, err)
	}

	if err := s.RecordImport(time.Now(), date); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	// 补传更早的文件不回退最新日期
	if err := s.RecordImport(time.Now(), day(2025, 6, 1)); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	last, latest, err := s.LastImport()
	if err != nil || last == "" || latest != "2025-07-01" {
		t.Fatalf("LastImport=%q %q %v", last, latest, err)
	}
}

func TestDiffRequiresExistingRecord(t *testing.T) {
	s := newTestStore(t)

	d := model.Diff{BaseType: model.BaseWeek, BaselineDate: day(2025, 6, 24), ChangeRate: decimal.Zero}
	if err := s.SaveDiff(9999, d); err == nil {
		t.Fatalf("expected foreign key violation for unknown record")
	}
}
