package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/storynest/backend/internal/api/response"
	"github.com/storynest/backend/internal/auth"
	"github.com/storynest/backend/internal/generate"
	"github.com/storynest/backend/internal/quota"
)

// PlanUpdater is the explicit upgrade path into the account store. In
// production it is the Postgres account repository; a billing webhook
// would call the same seam.
type PlanUpdater interface {
	UpdatePlan(ctx context.Context, userKey string, plan quota.Plan) error
}

// UserHandler exposes quota usage and the plan upgrade path
type UserHandler struct {
	service *generate.Service
	plans   PlanUpdater
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *generate.Service, plans PlanUpdater) *UserHandler {
	return &UserHandler{
		service: service,
		plans:   plans,
	}
}

// UsageResponse reports today's quota position for the caller
type UsageResponse struct {
	DayBucket  string     `json:"day_bucket"`
	Plan       quota.Plan `json:"plan"`
	DailyLimit int        `json:"daily_limit"`
	UsedToday  int        `json:"used_today"`
	Remaining  int        `json:"remaining"`
}

// GetUsage handles GET /api/v1/user/usage
func (h *UserHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	usage, err := h.service.UsageSnapshot(r.Context(), identity.UserKey)
	if err != nil {
		response.InternalError(w, "Failed to fetch usage")
		return
	}

	remaining := usage.DailyLimit - usage.UsedToday
	if remaining < 0 {
		remaining = 0
	}

	response.Success(w, UsageResponse{
		DayBucket:  usage.DayBucket,
		Plan:       usage.Plan,
		DailyLimit: usage.DailyLimit,
		UsedToday:  usage.UsedToday,
		Remaining:  remaining,
	})
}

// UpdatePlanRequest is the request body for a plan change
type UpdatePlanRequest struct {
	Plan quota.Plan `json:"plan"`
}

// UpdatePlan handles PUT /api/v1/user/plan
func (h *UserHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !quota.IsValidPlan(req.Plan) {
		response.Error(w, http.StatusBadRequest, "invalid_plan", "Unknown plan")
		return
	}

	if err := h.plans.UpdatePlan(r.Context(), identity.UserKey, req.Plan); err != nil {
		response.InternalError(w, "Failed to update plan")
		return
	}

	response.Success(w, map[string]interface{}{
		"plan": req.Plan,
	})
}
