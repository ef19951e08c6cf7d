package normalize

import (
	"testing"

	"recipe-ai-gateway/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipesJSON = `[
  {"title":"Tomato Omelette","description":"Quick breakfast","ingredients":["2 eggs","1 tomato"],"steps":["Whisk eggs","Cook"]},
  {"title":"Shakshuka","description":"Baked eggs","ingredients":["eggs","tomato"],"steps":["Simmer","Bake"]}
]`

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, common.ParseJSON(s, &v))
	return v
}

func TestNormalize_FourEnvelopesProduceIdenticalDrafts(t *testing.T) {
	fenced := "```json\n" + recipesJSON + "\n```"
	contentObj, err := common.ToJSON(map[string]any{"content": fenced})
	require.NoError(t, err)
	passthrough, err := common.ToJSON([]any{
		map[string]any{"content": []any{map[string]any{"type": "text", "text": fenced}}},
	})
	require.NoError(t, err)

	payloads := map[string]any{
		"array":       decode(t, recipesJSON),
		"text":        fenced,
		"content":     decode(t, contentObj),
		"passthrough": decode(t, passthrough),
		"recipes":     decode(t, `{"recipes":`+recipesJSON+`}`),
	}

	want := []common.RecipeDraft{
		{Title: "Tomato Omelette", Description: "Quick breakfast", Ingredients: []string{"2 eggs", "1 tomato"}, Steps: []string{"Whisk eggs", "Cook"}},
		{Title: "Shakshuka", Description: "Baked eggs", Ingredients: []string{"eggs", "tomato"}, Steps: []string{"Simmer", "Bake"}},
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			got, err := Normalize(payload)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalize_ArrayPassesThrough(t *testing.T) {
	got, err := Normalize(decode(t, `[{"title":"A","description":"d","ingredients":["x"],"steps":["y"]}]`))
	require.NoError(t, err)
	assert.Equal(t, []common.RecipeDraft{{Title: "A", Description: "d", Ingredients: []string{"x"}, Steps: []string{"y"}}}, got)
}

func TestNormalize_FillsMissingListsAndDropsInvalid(t *testing.T) {
	got, err := Normalize(decode(t, `[
		{"title":"Kept"},
		{"description":"no title"},
		"just a string",
		{"name":"Alias","instructions":"Stir once","ingredients":[{"name":"rice","quantity":"1","unit":"cup"}, 3]}
	]`))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Kept", got[0].Title)
	assert.NotNil(t, got[0].Ingredients)
	assert.NotNil(t, got[0].Steps)
	assert.Empty(t, got[0].Ingredients)

	assert.Equal(t, "Alias", got[1].Title)
	assert.Equal(t, []string{"1 cup rice", "3"}, got[1].Ingredients)
	assert.Equal(t, []string{"Stir once"}, got[1].Steps)
}

func TestNormalize_KeepsTitleVerbatim(t *testing.T) {
	got, err := Normalize(decode(t, `[{"title":"  Chicken & Rice Soup ","ingredients":[{"name":" rice ","quantity":" 1 ","unit":"cup"}]}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "  Chicken & Rice Soup ", got[0].Title)
	assert.Equal(t, []string{"1 cup rice"}, got[0].Ingredients)

	_, err = Normalize(decode(t, `[{"title":"   "}]`))
	assert.Equal(t, common.ErrCodeEmptyResult, common.KindOf(err))
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		kind    string
	}{
		{"prose text", "Sorry, I cannot help with that.", common.ErrCodeUpstreamFormat},
		{"number", 42.0, common.ErrCodeUpstreamFormat},
		{"nil", nil, common.ErrCodeUpstreamFormat},
		{"object without known fields", map[string]any{"foo": "bar"}, common.ErrCodeUpstreamFormat},
		{"content with prose", map[string]any{"content": "no json here"}, common.ErrCodeUpstreamFormat},
		{"empty array", []any{}, common.ErrCodeEmptyResult},
		{"all items invalid", []any{map[string]any{"description": "x"}}, common.ErrCodeEmptyResult},
		{"empty recipes field", map[string]any{"recipes": []any{}}, common.ErrCodeEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.payload)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.kind, common.KindOf(err))
		})
	}
}

func TestNormalize_ContentFallsBackToRecipes(t *testing.T) {
	got, err := Normalize(map[string]any{
		"content": "thinking...",
		"recipes": []any{map[string]any{"title": "Fallback"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fallback", got[0].Title)
}

func TestNormalize_NestingIsBounded(t *testing.T) {
	var payload any = recipesJSON
	for i := 0; i < maxEnvelopeDepth+2; i++ {
		s, err := common.ToJSON(map[string]any{"content": payload})
		require.NoError(t, err)
		payload = s
	}
	_, err := Normalize(payload)
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeUpstreamFormat, common.KindOf(err))
}

func TestClassify_Order(t *testing.T) {
	passthrough := []any{map[string]any{"content": []any{map[string]any{"text": "[]"}}}}
	envs := Classify(passthrough)
	require.Len(t, envs, 2)
	assert.Equal(t, KindPassthrough, envs[0].Kind)
	assert.Equal(t, KindArray, envs[1].Kind)

	envs = Classify(map[string]any{"content": "x", "recipes": []any{}})
	require.Len(t, envs, 2)
	assert.Equal(t, KindContent, envs[0].Kind)
	assert.Equal(t, KindRecipes, envs[1].Kind)

	assert.Equal(t, []Envelope{{Kind: KindUnrecognized}}, Classify(true))
}
