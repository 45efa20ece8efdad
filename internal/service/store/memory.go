package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"ehr/internal/model"
)

// MemoryStore 内存数据存储（dry-run 与测试使用）
type MemoryStore struct {
	records   map[model.NaturalKey]*model.WorkforceRecord
	byID      map[int64]*model.WorkforceRecord
	diffs     map[int64]map[model.BaseType]model.Diff
	snapshots map[string]*model.OverseasCorporationSnapshot
	nextID    int64
	mu        sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[model.NaturalKey]*model.WorkforceRecord),
		byID:      make(map[int64]*model.WorkforceRecord),
		diffs:     make(map[int64]map[model.BaseType]model.Diff),
		snapshots: make(map[string]*model.OverseasCorporationSnapshot),
	}
}

// FindByNaturalKey 按业务主键查找，返回副本
func (s *MemoryStore) FindByNaturalKey(key model.NaturalKey) (*model.WorkforceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key.ReportDate = model.DateOnly(key.ReportDate)
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Insert 插入记录
func (s *MemoryStore) Insert(rec *model.WorkforceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Headcount < 0 {
		return errors.New("headcount must be >= 0")
	}
	key := rec.Key()
	if _, ok := s.records[key]; ok {
		return errors.New("natural key already exists")
	}
	s.nextID++
	rec.ID = s.nextID
	cp := *rec
	s.records[key] = &cp
	s.byID[cp.ID] = &cp
	return nil
}

// Update 覆盖记录可变字段
func (s *MemoryStore) Update(rec *model.WorkforceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[rec.ID]
	if !ok {
		return errors.New("record not found")
	}
	existing.Headcount = rec.Headcount
	existing.SourceFile = rec.SourceFile
	existing.UploadID = rec.UploadID
	return nil
}

// LatestReportDate 最新报告日
func (s *MemoryStore) LatestReportDate() (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for k := range s.records {
		if k.ReportDate.After(latest) {
			latest = k.ReportDate
		}
	}
	return latest, !latest.IsZero(), nil
}

// ListByDate 某报告日的全部记录（副本，按 ID 排序）
func (s *MemoryStore) ListByDate(date time.Time) ([]*model.WorkforceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = model.DateOnly(date)
	var out []*model.WorkforceRecord
	for k, rec := range s.records {
		if k.ReportDate.Equal(date) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindBaseline 同一公司+项目在 onOrBefore 之前最近的记录，同日优先相同人力类型
func (s *MemoryStore) FindBaseline(company, project string, staff model.StaffType, onOrBefore time.Time) (*model.WorkforceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	onOrBefore = model.DateOnly(onOrBefore)
	var best *model.WorkforceRecord
	for k, rec := range s.records {
		if k.CompanyName != company || k.ProjectName != project || k.ReportDate.After(onOrBefore) {
			continue
		}
		if best == nil || baselineRank(rec, staff) < baselineRank(best, staff) ||
			(baselineRank(rec, staff) == baselineRank(best, staff) && rec.ID > best.ID) {
			best = rec
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// baselineRank 与 SQLite 实现相同的排序：日期新者优先，其次相同人力类型
func baselineRank(rec *model.WorkforceRecord, staff model.StaffType) int64 {
	rank := -model.DateOnly(rec.ReportDate).Unix() * 2
	if rec.StaffType != staff {
		rank++
	}
	return rank
}

// SaveDiff 保存差异
func (s *MemoryStore) SaveDiff(recordID int64, d model.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[recordID]; !ok {
		return errors.New("record not found")
	}
	if s.diffs[recordID] == nil {
		s.diffs[recordID] = make(map[model.BaseType]model.Diff)
	}
	s.diffs[recordID][d.BaseType] = d
	return nil
}

// GetDiff 读取差异
func (s *MemoryStore) GetDiff(recordID int64, base model.BaseType) (model.Diff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.diffs[recordID][base]
	return d, ok
}

// ListWithDiff 某报告日记录并附带指定基准的差异
func (s *MemoryStore) ListWithDiff(date time.Time, base model.BaseType) ([]*model.WorkforceRecord, error) {
	records, _ := s.ListByDate(date)
	for _, rec := range records {
		if d, ok := s.GetDiff(rec.ID, base); ok {
			rec.ApplyDiff(d)
		}
	}
	return records, nil
}

// Count 记录数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func snapshotKey(corporation string, date time.Time) string {
	return corporation + "@" + model.DateOnly(date).Format(model.DateLayout)
}

// FindSnapshot 查找海外快照
func (s *MemoryStore) FindSnapshot(corporation string, date time.Time) (*model.OverseasCorporationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[snapshotKey(corporation, date)]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

// InsertSnapshot 插入海外快照
func (s *MemoryStore) InsertSnapshot(snap *model.OverseasCorporationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Normalize()
	key := snapshotKey(snap.Corporation, snap.ReportDate)
	if _, ok := s.snapshots[key]; ok {
		return errors.New("snapshot already exists")
	}
	s.nextID++
	snap.ID = s.nextID
	cp := *snap
	s.snapshots[key] = &cp
	return nil
}

// UpdateSnapshot 覆盖海外快照
func (s *MemoryStore) UpdateSnapshot(snap *model.OverseasCorporationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Normalize()
	key := snapshotKey(snap.Corporation, snap.ReportDate)
	if _, ok := s.snapshots[key]; !ok {
		return errors.New("snapshot not found")
	}
	cp := *snap
	s.snapshots[key] = &cp
	return nil
}

// ListSnapshots 某报告日的海外快照
func (s *MemoryStore) ListSnapshots(date time.Time) ([]*model.OverseasCorporationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = model.DateOnly(date)
	var out []*model.OverseasCorporationSnapshot
	for _, snap := range s.snapshots {
		if snap.ReportDate.Equal(date) {
			cp := *snap
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Corporation < out[j].Corporation })
	return out, nil
}

// Clear 清空所有数据
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[model.NaturalKey]*model.WorkforceRecord)
	s.byID = make(map[int64]*model.WorkforceRecord)
	s.diffs = make(map[int64]map[model.BaseType]model.Diff)
	s.snapshots = make(map[string]*model.OverseasCorporationSnapshot)
}
