package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	configLastUploadAt     = "last_upload_at"
	configLatestReportDate = "latest_report_date"
)

// GetConfig 获取配置项，不存在时返回空串
func (s *Store) GetConfig(key string) (string, error) {
	return getConfig(s.db, key)
}

// SetConfig 设置配置项
func (s *Store) SetConfig(key, value string) error {
	return setConfig(s.db, key, value)
}

func getConfig(q dbtx, key string) (string, error) {
	var value string
	err := q.QueryRow("SELECT value FROM app_config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func setConfig(q dbtx, key, value string) error {
	_, err := q.Exec(`
		INSERT INTO app_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// RecordImport 导入完成后记录时间与最新报告日，两项在同一事务中写入
func (s *Store) RecordImport(at time.Time, reportDate time.Time) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := setConfig(tx, configLastUploadAt, at.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to set %s: %w", configLastUploadAt, err)
		}
		current, err := getConfig(tx, configLatestReportDate)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", configLatestReportDate, err)
		}
		// 补传历史文件不应回退最新日期
		if d := formatDate(reportDate); d > current {
			if err := setConfig(tx, configLatestReportDate, d); err != nil {
				return fmt.Errorf("failed to set %s: %w", configLatestReportDate, err)
			}
		}
		return nil
	})
}

// LastImport 返回最后导入时间与最新报告日（均可能为空）
func (s *Store) LastImport() (lastUploadAt, latestReportDate string, err error) {
	if lastUploadAt, err = s.GetConfig(configLastUploadAt); err != nil {
		return "", "", err
	}
	if latestReportDate, err = s.GetConfig(configLatestReportDate); err != nil {
		return "", "", err
	}
	return lastUploadAt, latestReportDate, nil
}
