package common

import "time"

// RecipeDraft 上游產生、尚未保存的食譜
type RecipeDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// Clone 深拷貝，保證切片不為 nil
func (d RecipeDraft) Clone() RecipeDraft {
	return RecipeDraft{
		Title:       d.Title,
		Description: d.Description,
		Ingredients: CopyStrings(d.Ingredients),
		Steps:       CopyStrings(d.Steps),
	}
}

// CloneDrafts 深拷貝整個列表
func CloneDrafts(drafts []RecipeDraft) []RecipeDraft {
	out := make([]RecipeDraft, len(drafts))
	for i, d := range drafts {
		out[i] = d.Clone()
	}
	return out
}

// RecipeSource 食譜來源
type RecipeSource string

const (
	SourceAI    RecipeSource = "AI"
	SourceUser  RecipeSource = "USER"
	SourceSaved RecipeSource = "SAVED"
)

// RecipeRecord 已保存的食譜
type RecipeRecord struct {
	RecipeDraft
	ID        string       `json:"id"`
	UserID    string       `json:"user_id,omitempty"`
	Source    RecipeSource `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
}

// GenerationRequest 食譜生成請求
type GenerationRequest struct {
	IngredientsText  string
	RequestingUserID string
}

// ChatContext 對話所針對的食譜
type ChatContext struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

// Validate 標題與食材皆為必要
func (c ChatContext) Validate() error {
	if IsBlank(c.Title) {
		return NewValidationError("recipe context is missing a title")
	}
	if len(c.Ingredients) == 0 {
		return NewValidationError("recipe context is missing ingredients")
	}
	return nil
}

// 對話角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 對話歷史訊息，依時間先後排列
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply 對話回覆
type ChatReply struct {
	Reply string         `json:"reply"`
	Raw   map[string]any `json:"-"`
}
