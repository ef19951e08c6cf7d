package common

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Truncate 截斷字串至 max 位元組，不切斷 UTF-8 字元
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// IsBlank 判斷字串是否只有空白
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CopyStrings 複製字串切片，nil 轉為空切片
func CopyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
