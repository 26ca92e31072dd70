package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/storynest/backend/internal/api/response"
	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/generate"
	"github.com/storynest/backend/internal/provider"
)

// GenerateHandler exposes the three generation capabilities over HTTP
type GenerateHandler struct {
	service *generate.Service
}

// NewGenerateHandler creates a new generation handler
func NewGenerateHandler(service *generate.Service) *GenerateHandler {
	return &GenerateHandler{service: service}
}

// StoryRequest is the request body for story generation
type StoryRequest struct {
	Messages []provider.ChatMessage `json:"messages"`
}

// ImageRequest is the request body for cover illustration generation
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// SpeechRequest is the request body for narration generation
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// ImageResponse carries the normalized image reference under both keys
// the client has historically read.
type ImageResponse struct {
	URL      string         `json:"url"`
	ImageURL string         `json:"image_url"`
	Usage    generate.Usage `json:"usage"`
}

// Story handles POST /api/v1/generate/story
func (h *GenerateHandler) Story(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	out, err := h.service.Story(r.Context(), identity.UserKey, req.Messages)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	response.Success(w, out)
}

// Image handles POST /api/v1/generate/image
func (h *GenerateHandler) Image(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	out, err := h.service.Image(r.Context(), identity.UserKey, req.Prompt)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	response.Success(w, ImageResponse{
		URL:      out.URL,
		ImageURL: out.URL,
		Usage:    out.Usage,
	})
}

// Speech handles POST /api/v1/generate/speech. Success is a raw audio
// body; the usage snapshot travels in headers so the body stays binary.
func (h *GenerateHandler) Speech(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	out, err := h.service.Speech(r.Context(), identity.UserKey, req.Text, req.Voice)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("X-Usage-Day-Bucket", out.Usage.DayBucket)
	w.Header().Set("X-Usage-Plan", string(out.Usage.Plan))
	w.Header().Set("X-Usage-Daily-Limit", strconv.Itoa(out.Usage.DailyLimit))
	w.Header().Set("X-Usage-Used-Today", strconv.Itoa(out.Usage.UsedToday))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Audio)
}

// writeGenerateError maps pipeline errors onto the HTTP error taxonomy.
// Nothing escapes unmapped: an unrecognized error still becomes a
// well-formed 500 rather than an opaque host-level fault.
func writeGenerateError(w http.ResponseWriter, err error) {
	var quotaErr *generate.QuotaExceededError
	if errors.As(err, &quotaErr) {
		response.ErrorWithDetails(w, http.StatusTooManyRequests, "quota_exceeded",
			"Daily generation limit reached", map[string]interface{}{
				"plan":        quotaErr.Plan,
				"daily_limit": quotaErr.DailyLimit,
				"used_today":  quotaErr.UsedToday,
				"day_bucket":  quotaErr.DayBucket,
			})
		return
	}

	var validationErr *generate.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(w, validationErr.Reason)
		return
	}

	var storeErr *generate.StoreError
	if errors.As(err, &storeErr) {
		response.InternalError(w, "Account store unavailable")
		return
	}

	if errors.Is(err, provider.ErrTimeout) {
		response.GatewayTimeout(w, "")
		return
	}

	var resultErr *generate.ResultInvalidError
	if errors.As(err, &resultErr) {
		response.Error(w, http.StatusBadGateway, "result_invalid",
			"Unexpected response from the generation service; the request was not counted")
		return
	}

	if errors.Is(err, provider.ErrMalformed) {
		response.BadGateway(w, "Generation service returned no usable payload")
		return
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		response.Error(w, status, "upstream_error", apiErr.Message)
		return
	}

	response.InternalError(w, "")
}
