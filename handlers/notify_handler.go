package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"aquaholicAPI/internal/notify"
	"aquaholicAPI/middleware"
	"aquaholicAPI/services"
)

type NotifyHandler struct {
	notifier       notify.Notifier
	profileService *services.ProfileService
}

func NewNotifyHandler(notifier notify.Notifier, profileService *services.ProfileService) *NotifyHandler {
	return &NotifyHandler{
		notifier:       notifier,
		profileService: profileService,
	}
}

// GET /api/v1/notify/callback?code= - finish the provider's OAuth dance:
// exchange the code for a durable credential, greet the user, store it.
func (h *NotifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'code' is required")
		return
	}

	credential, err := h.notifier.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("Notify callback: code exchange failed: %v", err)
		respondWithError(w, http.StatusBadGateway, "Failed to link notifications")
		return
	}

	// Welcome message doubles as a delivery check; a failure here is not
	// worth losing the credential over.
	if _, err := h.notifier.Send(ctx, "Welcome to aquaholic", &credential); err != nil {
		log.Printf("Notify callback: welcome message failed: %v", err)
	}

	if err := h.profileService.SaveCredential(ctx, clerkID, credential); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notifications linked"})
}

// GET /api/v1/notify/status - is the stored credential still valid
func (h *NotifyHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
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

	status, err := h.notifier.CheckStatus(ctx, p.NotifyCredential)
	if err != nil {
		log.Printf("Notify status check failed: %v", err)
		status = notify.StatusNone
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"linked": p.NotifyCredential != nil,
		"status": status,
	})
}

// POST /api/v1/notify/register-device - store an FCM device token
func (h *NotifyHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.profileService.RegisterDevice(ctx, clerkID, req.Token, req.Platform); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered"})
}
