package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

// decodeJSON 數字保留為 json.Number，且不允許多餘資料
func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

// JSONResult 文字萃取 JSON 的結果
type JSONResult struct {
	OK    bool
	Value any
}

const codeFence = "```"

// StripCodeFence 移除開頭的 ``` 或 ```json 圍欄與結尾的 ```，沒有圍欄時原樣返回（去除前後空白）
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, codeFence) {
		// 語言標籤只在第一行，且只由英數字組成
		s = strings.TrimLeft(s[len(codeFence):], " \t")
		s = strings.TrimLeftFunc(s, isTagRune)
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, codeFence) {
		s = strings.TrimSpace(s[:len(s)-len(codeFence)])
	}
	return s
}

func isTagRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// ExtractJSON 去除 Markdown 圍欄後解析 JSON，失敗時 OK 為 false，不會 panic
func ExtractJSON(text string) (result JSONResult) {
	defer func() {
		if r := recover(); r != nil {
			result = JSONResult{}
		}
	}()

	body := StripCodeFence(text)
	if body == "" {
		return JSONResult{}
	}

	var v any
	if err := ParseJSON(body, &v); err != nil {
		return JSONResult{}
	}
	return JSONResult{OK: true, Value: v}
}

// ToJSON 將結構體轉換為 JSON 字符串
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
