package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"recipe-ai-gateway/internal/core/ai/gateway"
	"recipe-ai-gateway/internal/core/ai/provider"
	"recipe-ai-gateway/internal/core/ai/webhook"
	"recipe-ai-gateway/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertRecipes(ctx context.Context, records []common.RecipeRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

type stubFetcher struct {
	payload any
	err     error
	calls   int32
}

func (s *stubFetcher) FetchRecipes(ctx context.Context, ingredientsText string) (any, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.payload, s.err
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	common.SetLogger(zap.New(core))
	t.Cleanup(func() { common.SetLogger(nil) })
	return logs
}

const threeRecipes = `[
 {"title":"Chicken Fried Rice","description":"Classic","ingredients":["chicken","rice"],"steps":["Cook rice","Fry"]},
 {"title":"Chicken & Rice Soup","description":"Warm","ingredients":["chicken","rice","water"],"steps":["Boil"]},
 {"title":"Arroz con Pollo","description":"Latin","ingredients":["chicken","rice","peppers"],"steps":["Brown chicken","Simmer"]}
]`

func completionHandler(content string, hits *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}
}

func testProviderConfig() provider.Config {
	return provider.Config{Timeout: 5 * time.Second}
}

func TestGenerate_ScenarioA_GatewayFencedArray(t *testing.T) {
	var hits int32
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		completionHandler("```json\n"+threeRecipes+"\n```", &hits)(w, r)
	}))
	defer srv.Close()

	client, err := gateway.NewClient(gateway.Credentials{OpenAIKey: "sk-test", OpenAIURL: srv.URL}, testProviderConfig())
	require.NoError(t, err)

	svc := NewGenerationService(client, nil)
	drafts, err := svc.Generate(context.Background(), common.GenerationRequest{IngredientsText: "chicken, rice"})
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.Equal(t, "Chicken Fried Rice", drafts[0].Title)
	assert.Equal(t, "Chicken & Rice Soup", drafts[1].Title)
	assert.Equal(t, "Arroz con Pollo", drafts[2].Title)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, gateway.OpenAIModel, gotBody["model"])
	assert.EqualValues(t, 0.7, gotBody["temperature"])
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].(map[string]any)["content"], "chicken, rice")
}

func webhookServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "ingredients", req["mode"])
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_ScenarioB_BareArrayMatchesRecipesEnvelope(t *testing.T) {
	two := `[{"title":"A","ingredients":["x"],"steps":["y"]},{"title":"B","description":"b"}]`

	var hits int32
	bare, err := webhook.NewClient(webhookServer(t, two, &hits).URL, testProviderConfig())
	require.NoError(t, err)
	wrapped, err := webhook.NewClient(webhookServer(t, `{"recipes":`+two+`}`, &hits).URL, testProviderConfig())
	require.NoError(t, err)

	a, err := NewGenerationService(bare, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "x"})
	require.NoError(t, err)
	b, err := NewGenerationService(wrapped, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "x"})
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGenerate_ScenarioC_ContentFieldWithFence(t *testing.T) {
	var hits int32
	body := `{"content":"` + "```json\\n[{\\\"title\\\":\\\"X\\\",\\\"ingredients\\\":[\\\"a\\\"],\\\"steps\\\":[\\\"b\\\"]}]\\n```" + `"}`
	client, err := webhook.NewClient(webhookServer(t, body, &hits).URL, testProviderConfig())
	require.NoError(t, err)

	drafts, err := NewGenerationService(client, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "X", drafts[0].Title)
}

func TestGenerate_ScenarioD_NotJSON(t *testing.T) {
	var hits int32
	client, err := webhook.NewClient(webhookServer(t, "not json at all", &hits).URL, testProviderConfig())
	require.NoError(t, err)

	drafts, err := NewGenerationService(client, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.Error(t, err)
	assert.Nil(t, drafts)
	assert.Equal(t, common.ErrCodeUpstreamFormat, common.KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, common.StatusOf(err))
}

func TestGenerate_UpstreamNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	client, err := gateway.NewClient(gateway.Credentials{OpenRouterKey: "or-key", OpenRouterURL: srv.URL}, testProviderConfig())
	require.NoError(t, err)
	assert.Equal(t, gateway.OpenRouterModel, client.Model())

	_, err = NewGenerationService(client, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.Error(t, err)
	ce, ok := common.AsCustomError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrCodeUpstreamTransport, ce.Code)
	assert.Equal(t, http.StatusUnauthorized, ce.Status)
	assert.Equal(t, http.StatusUnauthorized, ce.UpstreamStatus)
	assert.Contains(t, ce.UpstreamBody, "bad key")
}

func TestGenerate_LogsUpstreamBody(t *testing.T) {
	logs := observeLogs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("workflow node 'LLM' failed: quota"))
	}))
	defer srv.Close()

	client, err := webhook.NewClient(srv.URL, testProviderConfig())
	require.NoError(t, err)

	_, err = NewGenerationService(client, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "failed: quota")

	entries := logs.FilterMessage("食譜生成失敗").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusInternalServerError), fields["upstream_status"])
	assert.Equal(t, "workflow node 'LLM' failed: quota", fields["upstream_body"])
}

func TestGenerate_BlankIngredientsMakesNoCall(t *testing.T) {
	fetcher := &stubFetcher{payload: threeRecipes}
	_, err := NewGenerationService(fetcher, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "   "})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))
}

func TestGenerate_PropagatesFetcherError(t *testing.T) {
	want := common.NewConfigurationError("no AI provider configured")
	fetcher := &stubFetcher{err: want}
	_, err := NewGenerationService(fetcher, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	assert.Same(t, want, err)
}

func TestGenerate_PersistsForUser(t *testing.T) {
	store := new(mockStore)
	store.On("InsertRecipes", mock.Anything, mock.MatchedBy(func(records []common.RecipeRecord) bool {
		if len(records) != 3 {
			return false
		}
		for _, r := range records {
			if r.Source != common.SourceAI || r.UserID != "user-7" || r.ID == "" {
				return false
			}
		}
		return true
	})).Return(nil).Once()

	svc := NewGenerationService(&stubFetcher{payload: threeRecipes}, NewFanout(store, time.Second))
	drafts, err := svc.Generate(context.Background(), common.GenerationRequest{IngredientsText: "a", RequestingUserID: "user-7"})
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
	store.AssertExpectations(t)
}

func TestGenerate_NoUserSkipsPersistence(t *testing.T) {
	store := new(mockStore)
	svc := NewGenerationService(&stubFetcher{payload: threeRecipes}, NewFanout(store, time.Second))
	_, err := svc.Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.NoError(t, err)
	store.AssertNotCalled(t, "InsertRecipes", mock.Anything, mock.Anything)
}

func TestGenerate_FanoutFailureLeavesResultUnchanged(t *testing.T) {
	logs := observeLogs(t)

	store := new(mockStore)
	store.On("InsertRecipes", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// 寫入端修改收到的資料不應影響回傳結果
		records := args.Get(1).([]common.RecipeRecord)
		records[0].Title = "mutated"
		records[0].Ingredients[0] = "mutated"
	}).Return(errors.New("connection refused")).Once()

	fetcher := &stubFetcher{payload: threeRecipes}
	without, err := NewGenerationService(fetcher, nil).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a"})
	require.NoError(t, err)

	with, err := NewGenerationService(fetcher, NewFanout(store, time.Second)).Generate(context.Background(), common.GenerationRequest{IngredientsText: "a", RequestingUserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, without, with)
	store.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("食譜保存失敗").Len())
}

func TestFanout_RecoversFromPanic(t *testing.T) {
	logs := observeLogs(t)

	store := new(mockStore)
	store.On("InsertRecipes", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("driver exploded")
	}).Return(nil).Once()

	f := NewFanout(store, time.Second)
	assert.NotPanics(t, func() {
		f.Persist(context.Background(), "u1", []common.RecipeDraft{{Title: "A"}})
	})
	assert.Equal(t, 1, logs.FilterMessage("食譜保存失敗").Len())
}

func TestFanout_IgnoresClientCancellation(t *testing.T) {
	store := new(mockStore)
	store.On("InsertRecipes", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewFanout(store, time.Second).Persist(ctx, "u1", []common.RecipeDraft{{Title: "A"}})
	store.AssertExpectations(t)
}

func TestFanout_NilIsNoop(t *testing.T) {
	var f *Fanout
	assert.False(t, f.Enabled())
	assert.NotPanics(t, func() {
		f.Persist(context.Background(), "u1", []common.RecipeDraft{{Title: "A"}})
	})
}
