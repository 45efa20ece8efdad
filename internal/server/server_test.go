package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	v1 "ehr/internal/api/v1"
	"ehr/internal/config"
	"ehr/internal/importer"
	"ehr/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "ehr.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.DefaultConfig()
	cfg.Import.TempRemoveDelay = "0s"
	coordinator, err := NewCoordinator(cfg, s)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return New(s, coordinator, filepath.Join(dir, "uploads"), cfg)
}

func contractorWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := map[string]interface{}{
		"A3": "회사명", "B3": "구분", "C3": "인원", "D3": "프로젝트명", "E3": "업체명",
		"A4": "OK",
		"B5": "상주",
		"C6": 5, "D6": "A프로젝트", "E6": "X업체",
	}
	for ref, v := range rows {
		_ = f.SetCellValue(sheet, ref, v)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadAndQuery(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "외주인력현황_250701.xlsx", contractorWorkbook(t), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rec.Code, rec.Body.String())
	}
	var report importer.ImportReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SuccessCount != 1 || report.ReportDate != "2025-07-01" || report.UploadID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/"+report.UploadID, nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"completed"`)) {
		t.Fatalf("get upload status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records?base=week", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("records status=%d", rec.Code)
	}
	var records v1.RecordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if records.ReportDate != "2025-07-01" || len(records.Records) != 1 {
		t.Fatalf("unexpected records: %+v", records)
	}
	r := records.Records[0]
	if r.CompanyName != "OK홀딩스" || r.ProjectName != "A프로젝트 (X업체)" || r.Headcount != 5 || r.HeadcountChange != 5 {
		t.Fatalf("unexpected record: %+v", r)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status v1.StatusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if !status.Initialized || status.TotalRecords != 1 || status.LatestReportDate != "2025-07-01" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestUploadStructuralFailureIs422(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "외주_250701.xlsx", []byte("not a workbook"), nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	cases := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/records?base=quarter", nil),
		httptest.NewRequest(http.MethodGet, "/api/records?date=07-01-2025", nil),
		uploadRequest(t, "a.xlsx", contractorWorkbook(t), map[string]string{"file_type": "unknown"}),
	}
	for _, req := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: status=%d", req.Method, req.URL, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing upload status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/overseas", nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"snapshots":[]`)) {
		t.Fatalf("overseas status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestExportDownload(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty export status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "외주인력현황_250701.xlsx", contractorWorkbook(t), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export?date=2025-07-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !bytes.Contains([]byte(rec.Header().Get("Content-Disposition")), []byte("workforce-2025-07-01.xlsx")) {
		t.Fatalf("unexpected content-disposition: %s", rec.Header().Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	v, err := f.GetCellValue("인력현황", "A4")
	if err != nil || v != "OK홀딩스" {
		t.Fatalf("A4 = %q, %v", v, err)
	}
}
