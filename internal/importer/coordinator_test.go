package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ehr/internal/model"
	"ehr/internal/parser"
	memstore "ehr/internal/service/store"
	"ehr/internal/store"
)

// writeContractorFile 生成外注人力表：第 3 行为表头
func writeContractorFile(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{"회사명", "구분", "인원", "프로젝트명", "업체명"}
	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"외주 인력 현황"})
	_ = f.SetSheetRow(sheet, "A3", &header)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, 4+i)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()
	return path
}

func newSQLiteCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "ehr.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewCoordinator(s, s, Options{}), s
}

func TestImportContractorEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeContractorFile(t, dir, "외주인력현황_250701.xlsx", [][]interface{}{
		{"OK", nil, nil, nil, nil},
		{nil, "상주", nil, nil, nil},
		{nil, nil, 5, "A프로젝트", "X업체"},
		{nil, "비상주", 2, "B프로젝트", "Y업체"},
		{nil, "소계", 7, nil, nil},
	})

	c, s := newSQLiteCoordinator(t)
	var events []string
	report, err := c.Import(ImportOptions{
		FilePath: path,
		Progress: func(e ProgressEvent) { events = append(events, e.Type) },
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.FileType != model.FileTypeContractor || report.ReportDate != "2025-07-01" ||
		report.DateSource != parser.DateFromFilename {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if report.TotalRecords != 2 || report.SuccessCount != 2 || report.ErrorCount != 0 || report.Inserted != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(events) == 0 || events[0] != "start" || events[len(events)-1] != "done" {
		t.Fatalf("unexpected events: %v", events)
	}

	records, err := s.ListWithDiff(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), model.BaseWeek)
	if err != nil || len(records) != 2 {
		t.Fatalf("ListWithDiff: %v %v", records, err)
	}
	for _, r := range records {
		if r.CompanyName != "OK홀딩스" || r.UploadID != report.UploadID || r.SourceFile != "외주인력현황_250701.xlsx" {
			t.Fatalf("unexpected record: %+v", r)
		}
		if r.ProjectName == "A프로젝트 (X업체)" && (r.StaffType != model.StaffResident || r.Headcount != 5) {
			t.Fatalf("unexpected A record: %+v", r)
		}
		// 无基准：变化量等于当前人数，比率 100
		if r.HeadcountChange != r.Headcount || !r.ChangeRate.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("unexpected diff: %+v", r)
		}
	}

	u, err := s.GetUpload(report.UploadID)
	if err != nil || u == nil || u.Status != model.UploadCompleted || u.FileHash == "" || u.SuccessCount != 2 {
		t.Fatalf("unexpected upload: %+v %v", u, err)
	}
	if _, latest, _ := s.LastImport(); latest != "2025-07-01" {
		t.Fatalf("latest report date=%q", latest)
	}

	// 同一文件再次上传不新增行
	again, err := c.Import(ImportOptions{FilePath: path})
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if again.Inserted != 0 || again.SuccessCount != 2 {
		t.Fatalf("second import: %+v", again)
	}
	if n, _ := s.CountRecords(); n != 2 {
		t.Fatalf("expected 2 rows after re-upload, got %d", n)
	}
}

func TestImportComputesWeeklyDiff(t *testing.T) {
	dir := t.TempDir()
	c, s := newSQLiteCoordinator(t)

	week1 := writeContractorFile(t, dir, "외주인력현황_250624.xlsx", [][]interface{}{
		{"OK저축은행", "상주", 100, "콜센터", nil},
	})
	week2 := writeContractorFile(t, dir, "외주인력현황_250701.xlsx", [][]interface{}{
		{"OK저축은행", "상주", 120, "콜센터", nil},
	})
	for _, p := range []string{week1, week2} {
		if _, err := c.Import(ImportOptions{FilePath: p}); err != nil {
			t.Fatalf("Import %s: %v", p, err)
		}
	}

	records, err := s.ListWithDiff(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), model.BaseWeek)
	if err != nil || len(records) != 1 {
		t.Fatalf("ListWithDiff: %v %v", records, err)
	}
	r := records[0]
	if r.PreviousHeadcount != 100 || r.HeadcountChange != 20 || !r.ChangeRate.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected weekly diff: %+v", r)
	}
}

func TestImportOlderWeekRefreshesLatestDiff(t *testing.T) {
	dir := t.TempDir()
	c, s := newSQLiteCoordinator(t)

	latest := writeContractorFile(t, dir, "외주인력현황_250701.xlsx", [][]interface{}{
		{"OK저축은행", "상주", 120, "콜센터", nil},
	})
	older := writeContractorFile(t, dir, "외주인력현황_250624.xlsx", [][]interface{}{
		{"OK저축은행", "상주", 100, "콜센터", nil},
	})
	if _, err := c.Import(ImportOptions{FilePath: latest}); err != nil {
		t.Fatalf("Import latest: %v", err)
	}
	report, err := c.Import(ImportOptions{FilePath: older})
	if err != nil {
		t.Fatalf("Import older: %v", err)
	}
	if report.Diff == nil || report.Diff.ReportDate.Format(model.DateLayout) != "2025-06-24" {
		t.Fatalf("expected summary for the uploaded date, got %+v", report.Diff)
	}

	records, err := s.ListWithDiff(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), model.BaseWeek)
	if err != nil || len(records) != 1 {
		t.Fatalf("ListWithDiff: %v %v", records, err)
	}
	r := records[0]
	if r.PreviousHeadcount != 100 || r.HeadcountChange != 20 || !r.ChangeRate.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("latest weekly diff not refreshed: %+v", r)
	}
}

func TestImportHeaderNotFoundFailsUpload(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	_ = f.SetCellValue(f.GetSheetName(0), "A1", "외주 현황 메모")
	path := filepath.Join(dir, "외주_250701.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	c, s := newSQLiteCoordinator(t)
	report, err := c.Import(ImportOptions{FilePath: path})
	if !errors.Is(err, parser.ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}
	if report.Status != model.UploadFailed {
		t.Fatalf("status=%s", report.Status)
	}
	u, _ := s.GetUpload(report.UploadID)
	if u == nil || u.Status != model.UploadFailed || u.ErrorMessage == "" {
		t.Fatalf("unexpected upload: %+v", u)
	}
}

func TestImportUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "외주_250701.xlsx")
	if err := os.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	c, _ := newSQLiteCoordinator(t)
	if _, err := c.Import(ImportOptions{FilePath: path}); !errors.Is(err, parser.ErrFileUnreadable) {
		t.Fatalf("expected ErrFileUnreadable, got %v", err)
	}
}

func TestImportRejectsUnresolvedDate(t *testing.T) {
	dir := t.TempDir()
	path := writeContractorFile(t, dir, "외주인력현황.xlsx", [][]interface{}{
		{"OK", "상주", 1, "P", nil},
	})
	mem := memstore.NewMemoryStore()

	lenient := NewCoordinator(mem, nil, Options{Now: func() time.Time {
		return time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC)
	}})
	report, err := lenient.Import(ImportOptions{FilePath: path})
	if err != nil {
		t.Fatalf("lenient Import: %v", err)
	}
	if report.ReportDate != "2025-08-04" || report.DateSource != parser.DateFallback || len(report.Warnings) == 0 {
		t.Fatalf("unexpected fallback report: %+v", report)
	}

	strict := NewCoordinator(memstore.NewMemoryStore(), nil, Options{RejectUnresolvedDate: true})
	if _, err := strict.Import(ImportOptions{FilePath: path}); !errors.Is(err, parser.ErrDateUnresolvable) {
		t.Fatalf("expected ErrDateUnresolvable, got %v", err)
	}
}

func TestImportOverseasDryRun(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	values := map[string]interface{}{
		"A1": "기준일", "B1": time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		"G3": "PT OK Finance Indonesia",
		"G4": "법인장", "H4": "본부장", "I4": "팀장", "J4": "팀원",
		"G5": 1, "J10": 4,
	}
	for ref, v := range values {
		_ = f.SetCellValue(sheet, ref, v)
	}
	path := filepath.Join(dir, "해외법인현황.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	mem := memstore.NewMemoryStore()
	report, err := NewCoordinator(mem, nil, Options{}).Import(ImportOptions{FilePath: path})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.FileType != model.FileTypeOverseas || report.DateSource != parser.DateFromCell || report.ReportDate != "2025-06-30" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.UploadID == "" || report.SuccessCount != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	snaps, _ := mem.ListSnapshots(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if len(snaps) != 1 || snaps[0].Corporation != "PT OK Finance Indonesia" || snaps[0].TotalCount != 5 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
}
