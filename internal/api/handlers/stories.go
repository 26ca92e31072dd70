package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/storynest/backend/internal/api/response"
	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/models"
	"github.com/storynest/backend/internal/repository"
)

// StoryHandler handles the saved-story library endpoints. Saving a
// story is persistence, not generation, so quota does not apply here.
type StoryHandler struct {
	storyRepo *repository.StoryRepository
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(storyRepo *repository.StoryRepository) *StoryHandler {
	return &StoryHandler{storyRepo: storyRepo}
}

// SaveStoryRequest is the request body for saving a story
type SaveStoryRequest struct {
	Title         string   `json:"title"`
	ChildName     string   `json:"child_name"`
	Age           string   `json:"age"`
	Theme         string   `json:"theme"`
	Style         string   `json:"style"`
	Length        string   `json:"length"`
	Moral         string   `json:"moral"`
	Pages         []string `json:"pages"`
	CoverImageURL string   `json:"cover_image_url"`
}

// Save handles POST /api/v1/stories
func (h *StoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req SaveStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if len(req.Pages) == 0 {
		response.BadRequest(w, "Missing story pages")
		return
	}

	story := &models.Story{
		UserKey:       identity.UserKey,
		Title:         req.Title,
		ChildName:     req.ChildName,
		Age:           req.Age,
		Theme:         req.Theme,
		Style:         req.Style,
		Length:        req.Length,
		Moral:         req.Moral,
		Pages:         req.Pages,
		CoverImageURL: req.CoverImageURL,
	}

	if err := h.storyRepo.Save(r.Context(), story); err != nil {
		response.InternalError(w, "Failed to save story")
		return
	}

	response.Created(w, map[string]interface{}{
		"story": story,
	})
}

// List handles GET /api/v1/stories
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	limit := queryInt(r, "limit", 50, 1, 100)
	offset := queryInt(r, "offset", 0, 0, 1<<20)

	stories, err := h.storyRepo.ListByUser(r.Context(), identity.UserKey, limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list stories")
		return
	}

	response.Success(w, map[string]interface{}{
		"stories": stories,
	})
}

// queryInt parses an integer query parameter clamped to a range
func queryInt(r *http.Request, key string, defaultVal, minVal, maxVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	if intVal < minVal {
		return minVal
	}
	if intVal > maxVal {
		return maxVal
	}
	return intVal
}
