package util

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRate 格式化变化率（已是百分数），如 +20.00%
func FormatRate(rate decimal.Decimal) string {
	sign := ""
	if rate.IsPositive() {
		sign = "+"
	}
	return sign + rate.StringFixed(2) + "%"
}

// FormatChange 格式化人数变化，如 +5 / -3 / 0
func FormatChange(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Truncate 按 rune 截断，超出时以 … 结尾
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// Banner 命令行标题
func Banner(title string) string {
	line := strings.Repeat("=", 42)
	return fmt.Sprintf("%s\n  %s\n%s", line, title, line)
}
