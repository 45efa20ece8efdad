package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"ehr/internal/importer"
	"ehr/internal/store"
)

// Handler V1 API 处理器
type Handler struct {
	store       *store.Store
	coordinator *importer.Coordinator
	uploadDir   string
	removeDelay time.Duration
}

// NewHandler 创建 V1 API 处理器；uploadDir 为上传临时文件目录
func NewHandler(store *store.Store, coordinator *importer.Coordinator, uploadDir string, removeDelay time.Duration) *Handler {
	return &Handler{
		store:       store,
		coordinator: coordinator,
		uploadDir:   uploadDir,
		removeDelay: removeDelay,
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 文件上传
	router.POST("/uploads", h.Upload)
	router.GET("/uploads/:id", h.GetUpload)

	// 数据查询
	router.GET("/records", h.ListRecords)
	router.GET("/overseas", h.ListOverseas)

	// 报表导出
	router.GET("/export", h.Export)
}
