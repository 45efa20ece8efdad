package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"ehr/internal/exporter"
	"ehr/internal/model"
)

// Export 下载报告日的人力现况报表
// GET /api/export?date=2025-07-01
func (h *Handler) Export(c *gin.Context) {
	var date time.Time
	if v := c.Query("date"); v != "" {
		d, err := time.Parse(model.DateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date 格式应为 YYYY-MM-DD"})
			return
		}
		date = d
	}

	f, reportDate, err := exporter.NewExporter(h.store).Export(exporter.ExportOptions{ReportDate: date})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", buildExportContentDisposition(reportDate))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// buildExportContentDisposition ASCII 文件名 + RFC 5987 UTF-8 文件名
func buildExportContentDisposition(date time.Time) string {
	day := date.Format(model.DateLayout)
	ascii := fmt.Sprintf("workforce-%s.xlsx", day)
	utf8Name := fmt.Sprintf("인력현황_%s.xlsx", day)
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", ascii, url.PathEscape(utf8Name))
}
