package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ehr/internal/model"
)

const workforceColumns = `id, company_name, project_name, staff_type, headcount, report_date,
	source_file, upload_id, created_at, updated_at`

// FindByNaturalKey 按业务主键查找记录，不存在时返回 nil, nil
func (s *Store) FindByNaturalKey(key model.NaturalKey) (*model.WorkforceRecord, error) {
	row := s.db.QueryRow(`SELECT `+workforceColumns+` FROM workforce_records
		WHERE company_name = ? AND project_name = ? AND report_date = ? AND staff_type = ?`,
		key.CompanyName, key.ProjectName, formatDate(key.ReportDate), string(key.StaffType))
	rec, err := scanWorkforce(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", err)
	}
	return rec, nil
}

// Insert 插入新记录并回填 ID
func (s *Store) Insert(rec *model.WorkforceRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO workforce_records (
			company_name, project_name, staff_type, headcount, report_date, source_file, upload_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.CompanyName, rec.ProjectName, string(rec.StaffType), rec.Headcount,
		formatDate(rec.ReportDate), rec.SourceFile, rec.UploadID)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record id: %w", err)
	}
	rec.ID = id
	return nil
}

// Update 覆盖已有记录的可变字段
func (s *Store) Update(rec *model.WorkforceRecord) error {
	res, err := s.db.Exec(`
		UPDATE workforce_records SET
			headcount = ?,
			source_file = ?,
			upload_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rec.Headcount, rec.SourceFile, rec.UploadID, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update record: id %d not found", rec.ID)
	}
	return nil
}

// LatestReportDate 返回库中最新的报告日期
func (s *Store) LatestReportDate() (time.Time, bool, error) {
	var raw sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(report_date) FROM workforce_records`).Scan(&raw); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest report date: %w", err)
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

// ListByDate 列出某报告日的全部记录
func (s *Store) ListByDate(date time.Time) ([]*model.WorkforceRecord, error) {
	rows, err := s.db.Query(`SELECT `+workforceColumns+` FROM workforce_records
		WHERE report_date = ? ORDER BY company_name, staff_type, project_name`, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*model.WorkforceRecord
	for rows.Next() {
		rec, err := scanWorkforce(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindBaseline 查找同一公司+项目在 onOrBefore 当天或之前最近的一条记录，同日优先相同人力类型
func (s *Store) FindBaseline(company, project string, staff model.StaffType, onOrBefore time.Time) (*model.WorkforceRecord, error) {
	row := s.db.QueryRow(`SELECT `+workforceColumns+` FROM workforce_records
		WHERE company_name = ? AND project_name = ? AND report_date <= ?
		ORDER BY report_date DESC, CASE WHEN staff_type = ? THEN 0 ELSE 1 END, id DESC
		LIMIT 1`, company, project, formatDate(onOrBefore), string(staff))
	rec, err := scanWorkforce(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find baseline: %w", err)
	}
	return rec, nil
}

// SaveDiff 写入（覆盖）某条记录在某个基准下的差异
func (s *Store) SaveDiff(recordID int64, d model.Diff) error {
	_, err := s.db.Exec(`
		INSERT INTO workforce_diffs (
			record_id, base_type, baseline_date, baseline_found,
			previous_headcount, headcount_change, change_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id, base_type) DO UPDATE SET
			baseline_date = excluded.baseline_date,
			baseline_found = excluded.baseline_found,
			previous_headcount = excluded.previous_headcount,
			headcount_change = excluded.headcount_change,
			change_rate = excluded.change_rate,
			computed_at = CURRENT_TIMESTAMP
	`, recordID, string(d.BaseType), formatDate(d.BaselineDate), d.BaselineFound,
		d.PreviousHeadcount, d.HeadcountChange, d.ChangeRate.String())
	if err != nil {
		return fmt.Errorf("failed to save diff: %w", err)
	}
	return nil
}

// ListWithDiff 列出某报告日记录，并带上指定基准的差异（未计算过的记录差异为零值）
func (s *Store) ListWithDiff(date time.Time, base model.BaseType) ([]*model.WorkforceRecord, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.company_name, r.project_name, r.staff_type, r.headcount, r.report_date,
			r.source_file, r.upload_id, r.created_at, r.updated_at,
			d.previous_headcount, d.headcount_change, d.change_rate
		FROM workforce_records r
		LEFT JOIN workforce_diffs d ON d.record_id = r.id AND d.base_type = ?
		WHERE r.report_date = ?
		ORDER BY r.company_name, r.staff_type, r.project_name
	`, string(base), formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query records with diff: %w", err)
	}
	defer rows.Close()

	var out []*model.WorkforceRecord
	for rows.Next() {
		var (
			rec     model.WorkforceRecord
			staff   string
			rawDate string
			prev    sql.NullInt64
			change  sql.NullInt64
			rate    decimal.NullDecimal
			created sql.NullTime
			updated sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.CompanyName, &rec.ProjectName, &staff, &rec.Headcount, &rawDate,
			&rec.SourceFile, &rec.UploadID, &created, &updated,
			&prev, &change, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan record with diff: %w", err)
		}
		rec.StaffType = model.StaffType(staff)
		if rec.ReportDate, err = parseDate(rawDate); err != nil {
			return nil, err
		}
		rec.CreatedAt, rec.UpdatedAt = created.Time, updated.Time
		if prev.Valid {
			rec.BaseType = base
			rec.PreviousHeadcount = int(prev.Int64)
			rec.HeadcountChange = int(change.Int64)
			rec.ChangeRate = rate.Decimal
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// CountRecords 记录总数
func (s *Store) CountRecords() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM workforce_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkforce(row rowScanner) (*model.WorkforceRecord, error) {
	var (
		rec     model.WorkforceRecord
		staff   string
		date    string
		created sql.NullTime
		updated sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.CompanyName, &rec.ProjectName, &staff, &rec.Headcount, &date,
		&rec.SourceFile, &rec.UploadID, &created, &updated); err != nil {
		return nil, err
	}
	rec.StaffType = model.StaffType(staff)
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rec.ReportDate = d
	rec.CreatedAt, rec.UpdatedAt = created.Time, updated.Time
	return &rec, nil
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return d, nil
}
