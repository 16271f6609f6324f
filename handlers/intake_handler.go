package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"aquaholicAPI/internal/intake"
	"aquaholicAPI/middleware"
	"aquaholicAPI/services"
)

const msgBadIntake = "Please, input in the field."

type IntakeHandler struct {
	intakeService *services.IntakeService
}

func NewIntakeHandler(intakeService *services.IntakeService) *IntakeHandler {
	return &IntakeHandler{
		intakeService: intakeService,
	}
}

// POST /api/v1/intake - log water drunk on a given day (accumulates)
func (h *IntakeHandler) LogIntake(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req intake.LogIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.intakeService.Log(ctx, clerkID, req.Date, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotNumeric):
			respondWithError(w, http.StatusBadRequest, msgBadIntake)
		case errors.Is(err, services.ErrProfileNotFound):
			respondWithError(w, http.StatusNotFound, "Profile not found")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, record)
}

// GET /api/v1/intake/history?year=&month= - monthly chart data
func (h *IntakeHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := time.Now()
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	if year == 0 {
		year = now.Year()
	}
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if month < 1 || month > 12 {
		month = int(now.Month())
	}

	history, err := h.intakeService.MonthlyHistory(ctx, clerkID, year, month)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}
