package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"aquaholicAPI/middleware"
	"aquaholicAPI/services"
)

type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	profileService  *services.ProfileService
}

func NewScheduleHandler(scheduleService *services.ScheduleService, profileService *services.ProfileService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		profileService:  profileService,
	}
}

// GET /api/v1/schedule - the current generation in firing order
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.profileService.GetByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}

	slots, err := h.scheduleService.ListSchedule(ctx, p.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"notificationTurnedOn": p.NotificationTurnedOn,
		"slots":                slots,
	})
}

// PUT /api/v1/schedule/notifications - turn reminders on or off
func (h *ScheduleHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.profileService.SetNotificationsEnabled(ctx, clerkID, req.Enabled, time.Now()); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
