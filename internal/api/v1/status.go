package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized      bool   `json:"initialized"`      // 是否已有数据
	TotalRecords     int    `json:"totalRecords"`     // 人力记录总数
	LastUploadAt     string `json:"lastUploadAt"`     // 最后导入时间
	LatestReportDate string `json:"latestReportDate"` // 最新报告日
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	total, err := h.store.CountRecords()
	if err != nil {
		total = 0
	}

	lastUploadAt, latest, err := h.store.LastImport()
	if err != nil {
		lastUploadAt, latest = "", ""
	}

	c.JSON(http.StatusOK, StatusResponse{
		Initialized:      total > 0 || latest != "",
		TotalRecords:     total,
		LastUploadAt:     lastUploadAt,
		LatestReportDate: latest,
	})
}
