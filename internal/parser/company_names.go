package parser

import "strings"

// CompanyAlias 公司名映射规则：原值（大写、去空白后）包含 Token 即映射为 Canonical
type CompanyAlias struct {
	Token     string
	Canonical string
}

// DefaultCompanyAliases 按顺序匹配，先命中者生效。更具体的 token 必须排在前面。
var DefaultCompanyAliases = []CompanyAlias{
	{Token: "OKDS", Canonical: "OK데이터시스템"},
	{Token: "데이터시스템", Canonical: "OK데이터시스템"},
	{Token: "OK저축", Canonical: "OK저축은행"},
	{Token: "저축은행", Canonical: "OK저축은행"},
	{Token: "OK캐피탈", Canonical: "OK캐피탈"},
	{Token: "OK넥스트", Canonical: "OK넥스트"},
	{Token: "OK신용정보", Canonical: "OK신용정보"},
	{Token: "OK", Canonical: "OK홀딩스"},
	{Token: "홀딩스", Canonical: "OK홀딩스"},
}

// CompanyNormalizer 公司名规范化
type CompanyNormalizer struct {
	aliases []CompanyAlias
}

// NewCompanyNormalizer 创建规范化器；aliases 为空时使用默认表
func NewCompanyNormalizer(aliases []CompanyAlias) *CompanyNormalizer {
	if len(aliases) == 0 {
		aliases = DefaultCompanyAliases
	}
	return &CompanyNormalizer{aliases: aliases}
}

// Normalize 返回规范公司名；未命中任何规则时原样返回（仅做空白与 NFC 处理）
func (n *CompanyNormalizer) Normalize(raw string) string {
	name := NormalizeText(raw)
	if name == "" {
		return ""
	}
	probe := strings.ToUpper(CompactText(name))
	for _, a := range n.aliases {
		if strings.Contains(probe, strings.ToUpper(a.Token)) {
			return a.Canonical
		}
	}
	return name
}
