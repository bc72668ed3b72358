package handlers

import (
	"errors"
	"net/http"

	"factory-tracker/internal/logger"
	"factory-tracker/internal/tracker"
	"factory-tracker/pkg/utils"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// StatusFor maps registry errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrDuplicateIdentity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithRequestID(chimiddleware.GetReqID(r.Context())).
			Error("❌ unexpected tracker error", zap.Error(err))
		utils.RespondError(w, status, "Internal server error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
