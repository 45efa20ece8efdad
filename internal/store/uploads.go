package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ehr/internal/model"
)

// CreateUpload 创建上传日志（状态 pending），返回 upload id
func (s *Store) CreateUpload(filename string, fileSize int64, fileHash string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO uploads (id, filename, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, filename, fileSize, fileHash, string(model.UploadPending))
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	return id, nil
}

// MarkUploadProcessing 进入处理状态并记录识别出的文件类型
func (s *Store) MarkUploadProcessing(id string, fileType model.FileType) error {
	_, err := s.db.Exec(`UPDATE uploads SET status = ?, file_type = ? WHERE id = ?`,
		string(model.UploadProcessing), string(fileType), id)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}
	return nil
}

// FinishUpload 写入最终状态与计数
func (s *Store) FinishUpload(id string, status model.UploadStatus, total, success, errorCount int, reportDate *time.Time, errorMessage string) error {
	date := ""
	if reportDate != nil {
		date = formatDate(*reportDate)
	}
	_, err := s.db.Exec(`
		UPDATE uploads SET
			status = ?,
			total_records = ?,
			success_count = ?,
			error_count = ?,
			report_date = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), total, success, errorCount, date, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to finish upload: %w", err)
	}
	return nil
}

// GetUpload 查询上传日志
func (s *Store) GetUpload(id string) (*model.Upload, error) {
	var (
		u         model.Upload
		fileType  string
		status    string
		date      string
		created   sql.NullTime
		completed sql.NullTime
	)
	err := s.db.QueryRow(`
		SELECT id, filename, file_size, file_hash, file_type, status,
			total_records, success_count, error_count, error_message, report_date,
			created_at, completed_at
		FROM uploads WHERE id = ?
	`, id).Scan(&u.ID, &u.Filename, &u.FileSize, &u.FileHash, &fileType, &status,
		&u.TotalRecords, &u.SuccessCount, &u.ErrorCount, &u.ErrorMessage, &date,
		&created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	u.FileType = model.FileType(fileType)
	u.Status = model.UploadStatus(status)
	u.CreatedAt = created.Time
	if completed.Valid {
		t := completed.Time
		u.CompletedAt = &t
	}
	if date != "" {
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		u.ReportDate = &d
	}
	return &u, nil
}
