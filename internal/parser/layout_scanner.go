package parser

import (
	"fmt"
	"strings"
	"time"

	"ehr/internal/model"
)

// RowLayout 行式模板的列布局（列号从 0 开始，-1 表示不存在）
type RowLayout struct {
	Name         string
	HeaderRow    int // 默认表头行
	CompanyCol   int // 회사명，合并单元格，续行为空
	SectionCol   int // 구분：상주/비상주/프로젝트/소계
	HeadcountCol int // 인원
	ProjectCol   int // 프로젝트명/부서명
	VendorCol    int // 업체명
}

var (
	// ContractorLayout 외주 인력 현황
	ContractorLayout = RowLayout{
		Name:         "contractor",
		HeaderRow:    2,
		CompanyCol:   0,
		SectionCol:   1,
		HeadcountCol: 2,
		ProjectCol:   3,
		VendorCol:    4,
	}
	// DomesticLayout 국내 인력 현황，无业者列
	DomesticLayout = RowLayout{
		Name:         "domestic",
		HeaderRow:    2,
		CompanyCol:   0,
		SectionCol:   1,
		HeadcountCol: 2,
		ProjectCol:   3,
		VendorCol:    -1,
	}
)

// DefaultHeaderSearchRows 表头搜索窗口
const DefaultHeaderSearchRows = 20

var (
	headerStaffKeywords  = []string{"인원", "인력", "성명"}
	headerVendorKeywords = []string{"업체", "회사", "협력사"}
	subtotalKeywords     = []string{"소계", "합계", "총계"}
)

// sectionKeywords 顺序敏感：비상주 包含 상주，必须先判断
var sectionKeywords = []struct {
	keyword string
	staff   model.StaffType
}{
	{"비상주", model.StaffNonResident},
	{"상주", model.StaffResident},
	{"프로젝트", model.StaffProject},
}

// layoutRow 按 RowLayout 投影后的行，后续逻辑不再使用列号
type layoutRow struct {
	company   string
	section   string
	headcount int
	hasCount  bool
	project   string
	vendor    string
}

func (l RowLayout) project(g *Grid, row int) layoutRow {
	count, ok := ParseCount(g.At(row, l.HeadcountCol))
	r := layoutRow{
		company:   g.Text(row, l.CompanyCol),
		section:   CompactText(g.Text(row, l.SectionCol)),
		headcount: count,
		hasCount:  ok,
		project:   NormalizeText(g.Text(row, l.ProjectCol)),
	}
	if l.VendorCol >= 0 {
		r.vendor = NormalizeText(g.Text(row, l.VendorCol))
	}
	return r
}

// scanState 扫描状态：当前公司与当前人力区段
type scanState struct {
	company string
	section model.StaffType
}

// LayoutScanner 行式模板扫描器（单次前向扫描，不回溯）
type LayoutScanner struct {
	layout     RowLayout
	companies  *CompanyNormalizer
	searchRows int
}

// NewLayoutScanner 创建扫描器
func NewLayoutScanner(layout RowLayout) *LayoutScanner {
	return &LayoutScanner{
		layout:     layout,
		companies:  NewCompanyNormalizer(nil),
		searchRows: DefaultHeaderSearchRows,
	}
}

// WithSearchRows 设置表头搜索窗口
func (s *LayoutScanner) WithSearchRows(n int) *LayoutScanner {
	if n > 0 {
		s.searchRows = n
	}
	return s
}

// WithCompanyNormalizer 替换公司名规范化规则
func (s *LayoutScanner) WithCompanyNormalizer(n *CompanyNormalizer) *LayoutScanner {
	if n != nil {
		s.companies = n
	}
	return s
}

// Layout 当前布局
func (s *LayoutScanner) Layout() RowLayout {
	return s.layout
}

// FindHeader 返回表头行号：优先默认行，否则在搜索窗口内线性查找
func (s *LayoutScanner) FindHeader(g *Grid) (int, error) {
	if isHeaderRow(g, s.layout.HeaderRow) {
		return s.layout.HeaderRow, nil
	}
	limit := s.searchRows
	if limit > g.Len() {
		limit = g.Len()
	}
	for row := 0; row < limit; row++ {
		if isHeaderRow(g, row) {
			return row, nil
		}
	}
	return -1, ErrHeaderNotFound
}

// isHeaderRow 人数与公司/业者关键词须出现在不同单元格，避免把标题行当作表头
func isHeaderRow(g *Grid, row int) bool {
	if row < 0 || row >= g.Len() {
		return false
	}
	var staffCols, vendorCols []int
	for col, c := range g.Rows[row] {
		text := CompactText(c.Text)
		if text == "" {
			continue
		}
		if ContainsAny(text, headerStaffKeywords) {
			staffCols = append(staffCols, col)
		}
		if ContainsAny(text, headerVendorKeywords) {
			vendorCols = append(vendorCols, col)
		}
	}
	for _, sc := range staffCols {
		for _, vc := range vendorCols {
			if sc != vc {
				return true
			}
		}
	}
	return false
}

// Scan 定位表头后扫描全部数据行
func (s *LayoutScanner) Scan(g *Grid, reportDate time.Time) ([]*model.WorkforceRecord, error) {
	header, err := s.FindHeader(g)
	if err != nil {
		return nil, &ScanError{Sheet: g.Sheet, Err: fmt.Errorf("%w (searched %d rows)", err, s.searchRows)}
	}
	return s.ScanFrom(g, header+1, reportDate), nil
}

// ScanFrom 从指定行开始扫描，不做表头识别
func (s *LayoutScanner) ScanFrom(g *Grid, start int, reportDate time.Time) []*model.WorkforceRecord {
	date := model.DateOnly(reportDate)
	state := scanState{section: model.StaffResident}
	var records []*model.WorkforceRecord
	for row := start; row < g.Len(); row++ {
		var rec *model.WorkforceRecord
		state, rec = s.step(state, s.layout.project(g, row))
		if rec != nil {
			rec.ReportDate = date
			records = append(records, rec)
		}
	}
	return records
}

// step 处理一行，返回新状态与（可能的）记录
func (s *LayoutScanner) step(st scanState, row layoutRow) (scanState, *model.WorkforceRecord) {
	if CompactText(row.company) != "" {
		if ContainsAny(CompactText(row.company), subtotalKeywords) {
			return st, nil
		}
		if company := s.companies.Normalize(row.company); company != st.company {
			st.company = company
			st.section = model.StaffResident
		}
	}

	if ContainsAny(row.section, subtotalKeywords) {
		return st, nil
	}
	if staff, ok := matchSection(row.section); ok {
		st.section = staff
		if !row.hasCount {
			return st, nil
		}
	}

	if !row.hasCount || st.company == "" {
		return st, nil
	}
	if row.project == "" || row.headcount <= 0 {
		return st, nil
	}

	project := row.project
	if row.vendor != "" {
		project = fmt.Sprintf("%s (%s)", row.project, row.vendor)
	}
	return st, &model.WorkforceRecord{
		CompanyName: st.company,
		ProjectName: project,
		StaffType:   st.section,
		Headcount:   row.headcount,
	}
}

func matchSection(text string) (model.StaffType, bool) {
	if text == "" {
		return "", false
	}
	for _, s := range sectionKeywords {
		if strings.Contains(text, s.keyword) {
			return s.staff, true
		}
	}
	return "", false
}
