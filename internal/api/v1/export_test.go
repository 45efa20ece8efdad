package v1

import (
	"testing"
	"time"
)

func TestBuildExportContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildExportContentDisposition(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	want := "attachment; filename=\"workforce-2025-07-01.xlsx\"; filename*=UTF-8''%EC%9D%B8%EB%A0%A5%ED%98%84%ED%99%A9_2025-07-01.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}
