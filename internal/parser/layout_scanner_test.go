package parser

import (
	"errors"
	"testing"
	"time"

	"ehr/internal/model"
)

var scanDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func contractorGrid(body ...[]string) *Grid {
	rows := [][]string{
		{"외주 인력 현황"},
		{},
		{"회사명", "구분", "인원", "프로젝트명", "업체명"},
	}
	return GridFromStrings("현황", append(rows, body...))
}

func TestLayoutScannerEndToEnd(t *testing.T) {
	t.Parallel()

	g := contractorGrid(
		[]string{"OK", "", "", "", ""},
		[]string{"", "상주", "", "", ""},
		[]string{"", "", "5", "A프로젝트", "X업체"},
	)
	records, err := NewLayoutScanner(ContractorLayout).Scan(g, scanDate)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.CompanyName != "OK홀딩스" || r.ProjectName != "A프로젝트 (X업체)" ||
		r.StaffType != model.StaffResident || r.Headcount != 5 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if !r.ReportDate.Equal(scanDate) {
		t.Fatalf("report date=%v", r.ReportDate)
	}
}

func TestLayoutScannerSections(t *testing.T) {
	t.Parallel()

	g := contractorGrid(
		[]string{"OKDS", "", "", "", ""},
		[]string{"", "비상주", "", "", ""},
		[]string{"", "", "3", "운영", "Y업체"},
		[]string{"", "프로젝트", "2", "차세대", ""},
		[]string{"", "소계", "5", "", ""},
		[]string{"OK저축은행", "", "4", "콜센터", "Z업체"},
		[]string{"합계", "", "9", "", ""},
		[]string{"", "", "1", "잔여", ""},
	)
	records, err := NewLayoutScanner(ContractorLayout).Scan(g, scanDate)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []struct {
		company, project string
		staff            model.StaffType
		count            int
	}{
		{"OK데이터시스템", "운영 (Y업체)", model.StaffNonResident, 3},
		{"OK데이터시스템", "차세대", model.StaffProject, 2},
		{"OK저축은행", "콜센터 (Z업체)", model.StaffResident, 4},
		// 합계 行不改变状态
		{"OK저축은행", "잔여", model.StaffResident, 1},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, w := range want {
		r := records[i]
		if r.CompanyName != w.company || r.ProjectName != w.project || r.StaffType != w.staff || r.Headcount != w.count {
			t.Fatalf("record %d: got %+v want %+v", i, r, w)
		}
	}
}

func TestLayoutScannerSkipsZeroAndBlankProject(t *testing.T) {
	t.Parallel()

	g := contractorGrid(
		[]string{"OK캐피탈", "상주", "0", "유지보수", "A업체"},
		[]string{"", "", "3", "", "B업체"},
		[]string{"", "", "-", "개발", ""},
		[]string{"", "", "1,2", "개발", ""},
		[]string{"", "", "2명", "개발", ""},
	)
	records, err := NewLayoutScanner(ContractorLayout).Scan(g, scanDate)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Headcount != 12 || records[1].Headcount != 2 {
		t.Fatalf("unexpected headcounts: %d %d", records[0].Headcount, records[1].Headcount)
	}
}

func TestLayoutScannerHeaderSearch(t *testing.T) {
	t.Parallel()

	rows := [][]string{{"표지"}, {}, {}, {}, {}}
	rows = append(rows,
		[]string{"회사명", "구분", "인원", "부서", ""},
		[]string{"OK넥스트", "상주", "7", "인사팀", ""},
	)
	g := GridFromStrings("국내", rows)

	s := NewLayoutScanner(DomesticLayout)
	header, err := s.FindHeader(g)
	if err != nil || header != 5 {
		t.Fatalf("FindHeader=%d err=%v", header, err)
	}
	records, err := s.Scan(g, scanDate)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 || records[0].ProjectName != "인사팀" || records[0].CompanyName != "OK넥스트" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLayoutScannerSkipsTitleRowWithBothKeywords(t *testing.T) {
	t.Parallel()

	g := GridFromStrings("현황", [][]string{
		{"협력사 인력 현황"},
		{},
		{},
		{},
		{"회사명", "구분", "인원", "프로젝트명", "업체명"},
		{"OK", "", "", "", ""},
		{"", "상주", "", "", ""},
		{"", "", "5", "A프로젝트", "X업체"},
	})
	s := NewLayoutScanner(ContractorLayout)
	header, err := s.FindHeader(g)
	if err != nil || header != 4 {
		t.Fatalf("FindHeader=%d err=%v", header, err)
	}
	records, err := s.Scan(g, scanDate)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(records) != 1 || records[0].CompanyName != "OK홀딩스" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLayoutScannerHeaderNotFound(t *testing.T) {
	t.Parallel()

	g := GridFromStrings("빈시트", [][]string{{"제목"}, {"내용"}})
	_, err := NewLayoutScanner(ContractorLayout).WithSearchRows(5).Scan(g, scanDate)
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.Sheet != "빈시트" {
		t.Fatalf("expected ScanError for sheet, got %#v", err)
	}
}
