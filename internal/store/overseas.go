package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ehr/internal/model"
)

// FindSnapshot 按 (法人, 报告日) 查找快照，不存在时返回 nil, nil
func (s *Store) FindSnapshot(corporation string, date time.Time) (*model.OverseasCorporationSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, corporation, report_date, rank_counts_json, position_counts_json, raw_data_json,
			total_count, source_file, upload_id
		FROM overseas_snapshots WHERE corporation = ? AND report_date = ?
	`, corporation, formatDate(date))
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}
	return snap, nil
}

// InsertSnapshot 插入快照，总人数按职级重算
func (s *Store) InsertSnapshot(snap *model.OverseasCorporationSnapshot) error {
	snap.Normalize()
	ranks, positions, raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		INSERT INTO overseas_snapshots (
			corporation, report_date, rank_counts_json, position_counts_json, raw_data_json,
			total_count, source_file, upload_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.Corporation, formatDate(snap.ReportDate), ranks, positions, raw,
		snap.TotalCount, snap.SourceFile, snap.UploadID)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}
	snap.ID = id
	return nil
}

// UpdateSnapshot 覆盖已有快照
func (s *Store) UpdateSnapshot(snap *model.OverseasCorporationSnapshot) error {
	snap.Normalize()
	ranks, positions, raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		UPDATE overseas_snapshots SET
			rank_counts_json = ?,
			position_counts_json = ?,
			raw_data_json = ?,
			total_count = ?,
			source_file = ?,
			upload_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, ranks, positions, raw, snap.TotalCount, snap.SourceFile, snap.UploadID, snap.ID)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	return nil
}

// ListSnapshots 列出某报告日的全部海外快照
func (s *Store) ListSnapshots(date time.Time) ([]*model.OverseasCorporationSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, corporation, report_date, rank_counts_json, position_counts_json, raw_data_json,
			total_count, source_file, upload_id
		FROM overseas_snapshots WHERE report_date = ? ORDER BY corporation
	`, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*model.OverseasCorporationSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func encodeSnapshot(snap *model.OverseasCorporationSnapshot) (ranks, positions, raw string, err error) {
	b, err := json.Marshal(snap.RankCounts)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode rank counts: %w", err)
	}
	ranks = string(b)
	if b, err = json.Marshal(snap.PositionCounts); err != nil {
		return "", "", "", fmt.Errorf("failed to encode position counts: %w", err)
	}
	positions = string(b)
	if b, err = json.Marshal(snap.RawData); err != nil {
		return "", "", "", fmt.Errorf("failed to encode raw data: %w", err)
	}
	raw = string(b)
	return ranks, positions, raw, nil
}

func scanSnapshot(row rowScanner) (*model.OverseasCorporationSnapshot, error) {
	var (
		snap                  model.OverseasCorporationSnapshot
		date                  string
		ranks, positions, raw string
	)
	if err := row.Scan(&snap.ID, &snap.Corporation, &date, &ranks, &positions, &raw,
		&snap.TotalCount, &snap.SourceFile, &snap.UploadID); err != nil {
		return nil, err
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	snap.ReportDate = d
	if err := json.Unmarshal([]byte(ranks), &snap.RankCounts); err != nil {
		return nil, fmt.Errorf("failed to decode rank counts: %w", err)
	}
	if err := json.Unmarshal([]byte(positions), &snap.PositionCounts); err != nil {
		return nil, fmt.Errorf("failed to decode position counts: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.RawData); err != nil {
		return nil, fmt.Errorf("failed to decode raw data: %w", err)
	}
	return &snap, nil
}

// LatestSnapshotDate 最新的海外快照报告日
func (s *Store) LatestSnapshotDate() (time.Time, bool, error) {
	var raw sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(report_date) FROM overseas_snapshots`).Scan(&raw); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest snapshot date: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	d, err := parseDate(raw.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, true, nil
}
