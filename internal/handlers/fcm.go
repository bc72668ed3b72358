package handlers

import (
	"net/http"

	"factory-tracker/internal/logger"
	"factory-tracker/internal/services"
	"factory-tracker/internal/tracker"
	"factory-tracker/pkg/utils"

	"go.uber.org/zap"
)

type FCMTokenRequest struct {
	DriverID   string `json:"driverId"`
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterFCMToken registers a Firebase Cloud Messaging token for a known driver
func RegisterFCMToken(reg *tracker.Registry, tokens *services.TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FCMTokenRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		driverID := resolveDriverID(r, req.DriverID)
		if driverID == "" {
			utils.RespondError(w, http.StatusBadRequest, "driverId is required")
			return
		}
		if _, ok := reg.FindByID(driverID); !ok {
			utils.RespondError(w, http.StatusNotFound, "driver not found")
			return
		}

		if err := tokens.Register(driverID, req.Token, req.DeviceType); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		logger.Info("📱 FCM token registered",
			zap.String("driver_id", driverID),
			zap.String("device_type", req.DeviceType),
		)
		utils.RespondSuccess(w, nil)
	}
}
