// Package normalize 將各種上游回應格式整理成 []common.RecipeDraft
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"recipe-ai-gateway/internal/pkg/common"

	"go.uber.org/zap"
)

// Normalize 解析上游回應。找不到食譜列表時返回 UPSTREAM_FORMAT_ERROR，
// 列表中沒有任何有效食譜時返回 EMPTY_RESULT。成功時列表一定非空。
func Normalize(payload any) ([]common.RecipeDraft, error) {
	items, kind, ok := resolve(payload, 0)
	if !ok {
		return nil, common.NewUpstreamFormatError("unrecognized response shape", nil)
	}

	drafts := make([]common.RecipeDraft, 0, len(items))
	dropped := 0
	for _, item := range items {
		d, ok := coerceDraft(item)
		if !ok {
			dropped++
			continue
		}
		drafts = append(drafts, d)
	}

	if dropped > 0 {
		common.LogDebug("忽略無效的食譜項目",
			zap.String("envelope", kind.String()),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(drafts)),
		)
	}

	if len(drafts) == 0 {
		return nil, common.NewEmptyResultError("no recipes produced")
	}
	return drafts, nil
}

// coerceDraft 將單一項目轉為 RecipeDraft，沒有標題則視為無效
func coerceDraft(v any) (common.RecipeDraft, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return common.RecipeDraft{}, false
	}

	title := firstString(m, "title", "name")
	if title == "" {
		return common.RecipeDraft{}, false
	}

	steps := m["steps"]
	if steps == nil {
		steps = m["instructions"]
	}

	return common.RecipeDraft{
		Title:       title,
		Description: firstString(m, "description"),
		Ingredients: stringList(m["ingredients"]),
		Steps:       stringList(steps),
	}, true
}

// firstString 第一個非空白的字串欄位，原樣返回
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func trimmedString(m map[string]any, keys ...string) string {
	return strings.TrimSpace(firstString(m, keys...))
}

// stringList 接受字串陣列、物件陣列或單一字串，永遠返回非 nil 切片
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := scalarText(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		name := trimmedString(t, "name", "item", "ingredient", "text", "step", "instruction", "description")
		if name == "" {
			return ""
		}
		amount := trimmedString(t, "quantity", "amount")
		if amount == "" {
			if n, ok := t["quantity"].(json.Number); ok {
				amount = n.String()
			}
		}
		if amount != "" {
			if unit := trimmedString(t, "unit"); unit != "" {
				amount = fmt.Sprintf("%s %s", amount, unit)
			}
			return fmt.Sprintf("%s %s", amount, name)
		}
		return name
	}
	return ""
}
