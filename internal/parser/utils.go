package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeText 去除首尾空白并转为 NFC（macOS 上传的韩文文件名常为 NFD）
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return norm.NFC.String(s)
}

// CompactText 规范化并去除全部空白，用于关键词匹配
func CompactText(s string) string {
	return spaceRe.ReplaceAllString(NormalizeText(s), "")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ParseCount 宽松地把单元格解析为人数
// 千分位与“명”后缀被去除，只有破折号的单元格视为 0。空白或非数字返回 false。
func ParseCount(c Cell) (int, bool) {
	switch c.Kind {
	case CellNumber:
		return int(math.Round(c.Number)), true
	case CellString:
		s := CompactText(c.Text)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSuffix(s, "명")
		if s == "" {
			return 0, false
		}
		if strings.Trim(s, "-–—") == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	return 0, false
}

// CountOrZero 矩阵模板使用：空白/破折号/非数字一律按 0 处理
func CountOrZero(c Cell) int {
	n, _ := ParseCount(c)
	return n
}
