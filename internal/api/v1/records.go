package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ehr/internal/model"
)

// RecordsResponse 人力记录查询响应
type RecordsResponse struct {
	ReportDate string                   `json:"reportDate"`
	BaseType   model.BaseType           `json:"baseType"`
	Records    []*model.WorkforceRecord `json:"records"`
}

// OverseasResponse 海外快照查询响应
type OverseasResponse struct {
	ReportDate string                               `json:"reportDate"`
	Snapshots  []*model.OverseasCorporationSnapshot `json:"snapshots"`
}

// parseDateParam 解析 ?date=YYYY-MM-DD；缺省时使用 latest
func parseDateParam(c *gin.Context, latest func() (time.Time, bool, error)) (time.Time, bool, error) {
	if v := c.Query("date"); v != "" {
		d, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return time.Time{}, false, err
		}
		return d, true, nil
	}
	return latest()
}

// ListRecords 某报告日的人力记录及指定基准的差异
// GET /api/records?date=2025-07-01&base=week
func (h *Handler) ListRecords(c *gin.Context) {
	base, ok := model.ParseBaseType(c.Query("base"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base 必须为 week、month 或 year_end"})
		return
	}
	date, found, err := parseDateParam(c, h.store.LatestReportDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date 格式应为 YYYY-MM-DD"})
		return
	}
	resp := RecordsResponse{BaseType: base, Records: []*model.WorkforceRecord{}}
	if !found {
		c.JSON(http.StatusOK, resp)
		return
	}

	records, err := h.store.ListWithDiff(date, base)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp.ReportDate = date.Format(model.DateLayout)
	if records != nil {
		resp.Records = records
	}
	c.JSON(http.StatusOK, resp)
}

// ListOverseas 某报告日的海外法人快照
// GET /api/overseas?date=2025-07-01
func (h *Handler) ListOverseas(c *gin.Context) {
	date, found, err := parseDateParam(c, h.store.LatestSnapshotDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date 格式应为 YYYY-MM-DD"})
		return
	}
	resp := OverseasResponse{Snapshots: []*model.OverseasCorporationSnapshot{}}
	if !found {
		c.JSON(http.StatusOK, resp)
		return
	}

	snaps, err := h.store.ListSnapshots(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp.ReportDate = date.Format(model.DateLayout)
	if snaps != nil {
		resp.Snapshots = snaps
	}
	c.JSON(http.StatusOK, resp)
}
