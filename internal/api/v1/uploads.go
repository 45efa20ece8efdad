package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ehr/internal/importer"
	"ehr/internal/model"
)

// Upload 上传并同步导入一个 Excel 文件
// POST /api/uploads  (multipart: file, 可选 file_type；?stream=true 时以 SSE 推送进度)
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	var fileType model.FileType
	if v := c.PostForm("file_type"); v != "" {
		ft, ok := model.ParseFileType(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("无效的文件类型: %s", v)})
			return
		}
		fileType = ft
	}

	filename := filepath.Base(file.Filename)
	tempPath := filepath.Join(h.uploadDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filename))
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败"})
		return
	}
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	defer h.scheduleRemove(tempPath)

	opts := importer.ImportOptions{
		FilePath:         tempPath,
		OriginalFilename: filename,
		FileType:         fileType,
	}

	if c.Query("stream") == "true" {
		h.uploadStream(c, opts)
		return
	}

	report, err := h.coordinator.Import(opts)
	if err != nil {
		c.JSON(importStatusCode(report), gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// uploadStream SSE 流式返回进度事件，最后一个事件为 done 或 error
func (h *Handler) uploadStream(c *gin.Context, opts importer.ImportOptions) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	opts.Progress = func(event importer.ProgressEvent) {
		eventData, err := json.Marshal(event)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
	_, _ = h.coordinator.Import(opts)
}

// scheduleRemove 延迟删除临时文件
func (h *Handler) scheduleRemove(path string) {
	remove := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithField("file", path).WithError(err).Warn("failed to remove upload")
		}
	}
	if h.removeDelay <= 0 {
		remove()
		return
	}
	time.AfterFunc(h.removeDelay, remove)
}

// importStatusCode 结构性失败返回 422，其余错误 500
func importStatusCode(report *importer.ImportReport) int {
	if report != nil && report.Status == model.UploadFailed {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// GetUpload 查询上传状态
// GET /api/uploads/:id
func (h *Handler) GetUpload(c *gin.Context) {
	u, err := h.store.GetUpload(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "上传记录不存在"})
		return
	}
	c.JSON(http.StatusOK, u)
}
