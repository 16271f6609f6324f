package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"aquaholicAPI/services"
)

type CronHandler struct {
	dispatchService *services.DispatchService
}

func NewCronHandler(dispatchService *services.DispatchService) *CronHandler {
	return &CronHandler{
		dispatchService: dispatchService,
	}
}

// POST /api/v1/cron/dispatch - the external trigger's entry point, invoked
// every ~5 minutes. One synchronous pass, no body, just an acknowledgement;
// the caller is responsible for not overlapping invocations.
func (h *CronHandler) RunDispatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := h.dispatchService.RunPass(ctx, time.Now()); err != nil {
		// The loop never surfaces errors to a human; the trigger only
		// needs to know the pass did not complete.
		log.Printf("Dispatch pass failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "dispatch pass failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
