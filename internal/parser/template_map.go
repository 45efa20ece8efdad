package parser

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/xuri/excelize/v2"
)

// TemplateColumnMap 海外法人矩阵模板的坐标表（行号为 Excel 行号，列为字母）
type TemplateColumnMap struct {
	Corporation string   `toml:"name"`
	Aliases     []string `toml:"aliases"`

	AnchorCell string `toml:"anchor_cell"` // 法人名所在单元格，用于确认区块
	DateCell   string `toml:"date_cell"`   // 기준일
	TotalCell  string `toml:"total_cell"`  // 表内合计

	RankRows     map[string]int    `toml:"rank_rows"`     // 직급 → 行
	PositionCols map[string]string `toml:"position_cols"` // 직책 → 列

	RankTotalCol     string `toml:"rank_total_col"`     // 各职级合计列（可选）
	PositionTotalRow int    `toml:"position_total_row"` // 各职责合计行（可选）

	LabelCol   string    `toml:"label_col"`
	BlockRange [2]string `toml:"block"` // 原表区域，如 ["B3", "F11"]
}

// Names 法人名及别名
func (m TemplateColumnMap) Names() []string {
	return append([]string{m.Corporation}, m.Aliases...)
}

// Validate 检查坐标是否合法
func (m TemplateColumnMap) Validate() error {
	if m.Corporation == "" {
		return fmt.Errorf("template: corporation name is empty")
	}
	if len(m.RankRows) == 0 || len(m.PositionCols) == 0 {
		return fmt.Errorf("template %s: rank_rows and position_cols are required", m.Corporation)
	}
	for rank, row := range m.RankRows {
		if row < 1 {
			return fmt.Errorf("template %s: rank %s has invalid row %d", m.Corporation, rank, row)
		}
	}
	for pos, col := range m.PositionCols {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("template %s: position %s: %w", m.Corporation, pos, err)
		}
	}
	for _, ref := range []string{m.AnchorCell, m.DateCell, m.TotalCell, m.BlockRange[0], m.BlockRange[1]} {
		if ref == "" {
			continue
		}
		if _, _, err := excelize.CellNameToCoordinates(ref); err != nil {
			return fmt.Errorf("template %s: %w", m.Corporation, err)
		}
	}
	return nil
}

// TemplateRegistry 已知海外法人模板集合
type TemplateRegistry struct {
	maps []TemplateColumnMap
}

type templateFile struct {
	Corporations []TemplateColumnMap `toml:"corporation"`
}

// LoadTemplates 从 TOML 文件加载模板；path 为空时返回默认模板
func LoadTemplates(path string) (*TemplateRegistry, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template map: %w", err)
	}
	var tf templateFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse template map: %w", err)
	}
	return NewTemplateRegistry(tf.Corporations)
}

// NewTemplateRegistry 校验并创建模板集合
func NewTemplateRegistry(maps []TemplateColumnMap) (*TemplateRegistry, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("template map is empty")
	}
	for _, m := range maps {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	return &TemplateRegistry{maps: maps}, nil
}

// Maps 全部模板
func (r *TemplateRegistry) Maps() []TemplateColumnMap {
	return r.maps
}

// Names 所有法人名与别名（供文件分类使用）
func (r *TemplateRegistry) Names() []string {
	var out []string
	for _, m := range r.maps {
		out = append(out, m.Names()...)
	}
	return out
}

// DateCell 第一个定义了日期单元格的模板的坐标
func (r *TemplateRegistry) DateCell() string {
	for _, m := range r.maps {
		if m.DateCell != "" {
			return m.DateCell
		}
	}
	return ""
}

var (
	defaultRanks = map[string]int{
		"임원": 5,
		"부장": 6,
		"차장": 7,
		"과장": 8,
		"대리": 9,
		"사원": 10,
	}
	defaultPositions = []string{"법인장", "본부장", "팀장", "팀원"}
)

// blockMap 生成并排布局中的一个法人区块：4 个职责列 + 1 个合计列
func blockMap(name string, aliases []string, firstCol int) TemplateColumnMap {
	col := func(offset int) string {
		s, _ := excelize.ColumnNumberToName(firstCol + offset)
		return s
	}
	positions := make(map[string]string, len(defaultPositions))
	for i, p := range defaultPositions {
		positions[p] = col(i)
	}
	ranks := make(map[string]int, len(defaultRanks))
	for k, v := range defaultRanks {
		ranks[k] = v
	}
	totalCol := col(len(defaultPositions))
	return TemplateColumnMap{
		Corporation:      name,
		Aliases:          aliases,
		AnchorCell:       col(0) + "3",
		DateCell:         "B1",
		TotalCell:        totalCol + "11",
		RankRows:         ranks,
		PositionCols:     positions,
		RankTotalCol:     totalCol,
		PositionTotalRow: 11,
		LabelCol:         "A",
		BlockRange:       [2]string{col(0) + "3", totalCol + "11"},
	}
}

// DefaultTemplates 内置的四个海外法人模板（同一 sheet 中左右并排）
func DefaultTemplates() *TemplateRegistry {
	return &TemplateRegistry{maps: []TemplateColumnMap{
		blockMap("PT Bank OK Indonesia", []string{"OK인니은행", "Bank OK Indonesia"}, 2),
		blockMap("PT OK Finance Indonesia", []string{"OK인니파이낸스", "OK Finance Indonesia"}, 7),
		blockMap("OK Microfinance Cambodia", []string{"OK캄보디아", "OK MFI"}, 12),
		blockMap("OK Capital Vietnam", []string{"OK베트남", "OK Capital VN"}, 17),
	}}
}
