package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"aquaholicAPI/internal/notify"
	"aquaholicAPI/internal/profile"
	"aquaholicAPI/internal/schedule"
	"aquaholicAPI/middleware"
	"aquaholicAPI/services"
)

// User-facing validation messages, one per failure kind.
const (
	msgNotNumeric  = "Please, enter numbers in both fields."
	msgEmptyWindow = "Please, enter different time or time difference is more than 1 hour."
	msgNoTarget    = "Please, calculate your water amount per day first."
)

type ProfileHandler struct {
	profileService *services.ProfileService
	lineNotifier   *notify.LineNotifier
}

func NewProfileHandler(profileService *services.ProfileService, lineNotifier *notify.LineNotifier) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		lineNotifier:   lineNotifier,
	}
}

// GET /api/v1/profile - fetch the profile, creating it lazily on first access
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.profileService.GetOrCreate(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// POST /api/v1/hydration/calculate - anonymous daily target calculator
func (h *ProfileHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req profile.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target, err := h.profileService.Calculate(req.Weight, req.ExerciseDuration)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, msgNotNumeric)
		return
	}

	respondWithJSON(w, http.StatusOK, profile.CalculateResponse{WaterAmountPerDay: target})
}

// PUT /api/v1/profile/metrics - update weight/exercise and re-derive targets
func (h *ProfileHandler) UpdateBodyMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req profile.UpdateBodyMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.profileService.UpdateBodyMetrics(ctx, clerkID, req.Weight, req.ExerciseDuration)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotNumeric):
			respondWithError(w, http.StatusBadRequest, msgNotNumeric)
		case errors.Is(err, services.ErrProfileNotFound):
			respondWithError(w, http.StatusNotFound, "Profile not found")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// PUT /api/v1/profile/awake-window - save the window and rebuild the schedule
func (h *ProfileHandler) UpdateAwakeWindow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req profile.UpdateAwakeWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.profileService.UpdateAwakeWindow(ctx, clerkID, &req, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrEmptyWindow), errors.Is(err, schedule.ErrInvalidInterval):
			respondWithError(w, http.StatusBadRequest, msgEmptyWindow)
		case errors.Is(err, schedule.ErrNotConfigured):
			respondWithError(w, http.StatusConflict, msgNoTarget)
		case errors.Is(err, services.ErrProfileNotFound):
			respondWithError(w, http.StatusNotFound, "Profile not found")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Users without a linked credential are pointed at the provider's
	// authorize page so reminders have somewhere to go.
	resp := map[string]interface{}{"profile": p}
	if p.NotifyCredential == nil {
		resp["authorizeUrl"] = h.lineNotifier.AuthorizeURL(clerkID)
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
