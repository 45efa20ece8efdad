package model

import "time"

// FileType 上传文件类型
type FileType string

const (
	FileTypeDomestic   FileType = "domestic"   // 국내 직원
	FileTypeOverseas   FileType = "overseas"   // 해외 법인
	FileTypeContractor FileType = "contractor" // 외주 인력
)

// ParseFileType 解析显式指定的文件类型
func ParseFileType(s string) (FileType, bool) {
	switch FileType(s) {
	case FileTypeDomestic, FileTypeOverseas, FileTypeContractor:
		return FileType(s), true
	}
	return "", false
}

// UploadStatus 上传处理状态
type UploadStatus string

const (
	UploadPending    UploadStatus = "pending"
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

// Upload 上传日志
type Upload struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	FileSize     int64        `json:"fileSize"`
	FileHash     string       `json:"fileHash"`
	FileType     FileType     `json:"fileType"`
	Status       UploadStatus `json:"status"`
	TotalRecords int          `json:"totalRecords"`
	SuccessCount int          `json:"successRecords"`
	ErrorCount   int          `json:"errorRecords"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	ReportDate   *time.Time   `json:"reportDate,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}
