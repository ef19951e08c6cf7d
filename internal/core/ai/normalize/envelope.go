package normalize

import (
	"recipe-ai-gateway/internal/pkg/common"
)

// Kind 上游回應外層結構種類
type Kind int

const (
	// KindUnrecognized 無法辨識
	KindUnrecognized Kind = iota
	// KindArray 直接是食譜陣列
	KindArray
	// KindText 字串，內含（可能有圍欄的）JSON
	KindText
	// KindContent 物件，content 欄位為字串
	KindContent
	// KindPassthrough 陣列，第一個元素為 {content: [{text}]}
	KindPassthrough
	// KindRecipes 物件，recipes 欄位為陣列
	KindRecipes
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindText:
		return "text"
	case KindContent:
		return "content"
	case KindPassthrough:
		return "passthrough"
	case KindRecipes:
		return "recipes"
	default:
		return "unrecognized"
	}
}

// maxEnvelopeDepth 文字外層最多展開的次數
const maxEnvelopeDepth = 4

// Envelope 已辨識的外層結構。Items 用於 Array/Recipes，Text 用於 Text/Content/Passthrough。
type Envelope struct {
	Kind  Kind
	Items []any
	Text  string
}

// Classify 依優先順序列出 v 符合的所有外層結構，沒有任何符合時只返回 KindUnrecognized
func Classify(v any) []Envelope {
	var out []Envelope
	switch t := v.(type) {
	case []any:
		if text, ok := passthroughText(t); ok {
			out = append(out, Envelope{Kind: KindPassthrough, Text: text})
		}
		out = append(out, Envelope{Kind: KindArray, Items: t})
	case string:
		out = append(out, Envelope{Kind: KindText, Text: t})
	case map[string]any:
		if content, ok := t["content"].(string); ok {
			out = append(out, Envelope{Kind: KindContent, Text: content})
		}
		if recipes, ok := t["recipes"].([]any); ok {
			out = append(out, Envelope{Kind: KindRecipes, Items: recipes})
		}
	}
	if len(out) == 0 {
		out = append(out, Envelope{Kind: KindUnrecognized})
	}
	return out
}

// passthroughText 取出 [{content: [{text: "..."}]}] 的 text
func passthroughText(arr []any) (string, bool) {
	if len(arr) == 0 {
		return "", false
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := first["content"].([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}
	part, ok := parts[0].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := part["text"].(string)
	return text, ok
}

// resolve 找出候選食譜列表，依序嘗試每個符合的外層結構，失敗的分支會退回下一個
func resolve(v any, depth int) ([]any, Kind, bool) {
	if depth > maxEnvelopeDepth {
		return nil, KindUnrecognized, false
	}
	for _, env := range Classify(v) {
		switch env.Kind {
		case KindArray, KindRecipes:
			return env.Items, env.Kind, true
		case KindText, KindContent, KindPassthrough:
			parsed := common.ExtractJSON(env.Text)
			if !parsed.OK {
				continue
			}
			if items, _, ok := resolve(parsed.Value, depth+1); ok {
				return items, env.Kind, true
			}
		}
	}
	return nil, KindUnrecognized, false
}
