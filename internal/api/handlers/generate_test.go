package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/generate"
	"github.com/storynest/backend/internal/provider"
	"github.com/storynest/backend/internal/quota"
	"github.com/storynest/backend/internal/store"
)

type stubProvider struct {
	storyErr  error
	imageErr  error
	speechErr error
}

func (p *stubProvider) GenerateStory(ctx context.Context, messages []provider.ChatMessage) (*provider.StoryResult, error) {
	if p.storyErr != nil {
		return nil, p.storyErr
	}
	return &provider.StoryResult{Content: strings.Repeat("A gentle tale. ", 5)}, nil
}

func (p *stubProvider) GenerateImage(ctx context.Context, prompt string) (*provider.ImageResult, error) {
	if p.imageErr != nil {
		return nil, p.imageErr
	}
	return &provider.ImageResult{URL: "https://img.example.com/cover.png"}, nil
}

func (p *stubProvider) GenerateSpeech(ctx context.Context, text, voice string) (*provider.SpeechResult, error) {
	if p.speechErr != nil {
		return nil, p.speechErr
	}
	return &provider.SpeechResult{Audio: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

type generateEnv struct {
	router     chi.Router
	jwtService *auth.JWTService
	store      *store.Memory
	provider   *stubProvider
}

func newGenerateEnv(t *testing.T) *generateEnv {
	t.Helper()

	mem := store.NewMemory()
	stub := &stubProvider{}
	svc := generate.NewService(mem, stub, quota.Limits{quota.PlanFree: 2, quota.PlanPaid: 10})

	jwtService := auth.NewJWTService("test-secret", time.Hour)
	authMW := auth.NewMiddleware(jwtService)
	handler := NewGenerateHandler(svc)

	r := chi.NewRouter()
	r.Route("/api/v1/generate", func(r chi.Router) {
		r.Use(authMW.Authenticate)
		r.Post("/story", handler.Story)
		r.Post("/image", handler.Image)
		r.Post("/speech", handler.Speech)
	})

	return &generateEnv{router: r, jwtService: jwtService, store: mem, provider: stub}
}

func (e *generateEnv) request(t *testing.T, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *generateEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.jwtService.Generate(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

var storyPayload = map[string]interface{}{
	"messages": []map[string]string{
		{"role": "user", "content": "A story about a hedgehog."},
	},
}

func TestStoryEndpoint(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/story", storyPayload, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Content string         `json:"content"`
		Usage   generate.Usage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Content)
	assert.Equal(t, 1, resp.Usage.UsedToday)
	assert.Equal(t, 2, resp.Usage.DailyLimit)
	assert.Equal(t, quota.PlanFree, resp.Usage.Plan)
}

func TestStoryEndpointRequiresAuth(t *testing.T) {
	env := newGenerateEnv(t)

	rec := env.request(t, "/api/v1/generate/story", storyPayload, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStoryEndpointQuotaExceeded(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	for i := 0; i < 2; i++ {
		rec := env.request(t, "/api/v1/generate/story", storyPayload, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.request(t, "/api/v1/generate/story", storyPayload, token)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var errResp struct {
		Error   string `json:"error"`
		Details struct {
			Plan       string `json:"plan"`
			DailyLimit int    `json:"daily_limit"`
			UsedToday  int    `json:"used_today"`
			DayBucket  string `json:"day_bucket"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "quota_exceeded", errResp.Error)
	assert.Equal(t, "free", errResp.Details.Plan)
	assert.Equal(t, 2, errResp.Details.DailyLimit)
	assert.Equal(t, 2, errResp.Details.UsedToday)
	assert.NotEmpty(t, errResp.Details.DayBucket)
}

func TestQuotaIsPerUser(t *testing.T) {
	env := newGenerateEnv(t)
	alice := env.token(t, "alice")
	bob := env.token(t, "bob")

	for i := 0; i < 2; i++ {
		rec := env.request(t, "/api/v1/generate/story", storyPayload, alice)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.request(t, "/api/v1/generate/story", storyPayload, alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.request(t, "/api/v1/generate/story", storyPayload, bob)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQuotaIsSharedAcrossCapabilities(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/story", storyPayload, token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.request(t, "/api/v1/generate/image", map[string]string{"prompt": "a hedgehog"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, "/api/v1/generate/speech", map[string]string{"text": "Goodnight."}, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStoryEndpointValidation(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/story", map[string]interface{}{"messages": []string{}}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A rejected request does not consume quota
	rec = env.request(t, "/api/v1/generate/story", storyPayload, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Usage generate.Usage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Usage.UsedToday)
}

func TestStoryEndpointMalformedJSON(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/story", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageEndpointResponseShape(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/image", map[string]string{"prompt": "a hedgehog"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// Both historical keys carry the same reference
	assert.Equal(t, "https://img.example.com/cover.png", resp["url"])
	assert.Equal(t, "https://img.example.com/cover.png", resp["image_url"])
}

func TestSpeechEndpointBinaryResponse(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/speech", map[string]string{"text": "Goodnight, little one."}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3", rec.Body.String())
	assert.Equal(t, "free", rec.Header().Get("X-Usage-Plan"))
	assert.Equal(t, "2", rec.Header().Get("X-Usage-Daily-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-Usage-Used-Today"))
	assert.NotEmpty(t, rec.Header().Get("X-Usage-Day-Bucket"))
}

func TestUpstreamTimeoutMapsTo504(t *testing.T) {
	env := newGenerateEnv(t)
	env.provider.storyErr = fmt.Errorf("%w: context deadline exceeded", provider.ErrTimeout)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/story", storyPayload, token)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestUpstreamStatusIsForwarded(t *testing.T) {
	env := newGenerateEnv(t)
	env.provider.imageErr = &provider.APIError{StatusCode: 429, Message: "upstream rate limited"}
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/image", map[string]string{"prompt": "a hedgehog"}, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_error")
}

func TestMalformedUpstreamMapsTo502(t *testing.T) {
	env := newGenerateEnv(t)
	env.provider.speechErr = fmt.Errorf("speech response: %w", provider.ErrMalformed)
	token := env.token(t, "user-1")

	rec := env.request(t, "/api/v1/generate/speech", map[string]string{"text": "Goodnight."}, token)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInvalidResultMapsTo502NotCounted(t *testing.T) {
	env := newGenerateEnv(t)
	token := env.token(t, "user-1")

	mem := store.NewMemory()
	stub := &shortStoryProvider{}
	svc := generate.NewService(mem, stub, quota.Limits{quota.PlanFree: 2})
	handler := NewGenerateHandler(svc)
	authMW := auth.NewMiddleware(env.jwtService)

	r := chi.NewRouter()
	r.With(authMW.Authenticate).Post("/api/v1/generate/story", handler.Story)

	body, _ := json.Marshal(storyPayload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/story", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "result_invalid")

	used, err := mem.GetUsage(context.Background(), "user-1", quota.DayBucket(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, used)
}

type shortStoryProvider struct{ stubProvider }

func (p *shortStoryProvider) GenerateStory(ctx context.Context, messages []provider.ChatMessage) (*provider.StoryResult, error) {
	return &provider.StoryResult{Content: "Too short."}, nil
}
