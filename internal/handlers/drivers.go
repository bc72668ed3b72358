package handlers

import (
	"fmt"
	"net/http"

	"factory-tracker/internal/logger"
	"factory-tracker/internal/metrics"
	"factory-tracker/internal/middleware"
	"factory-tracker/internal/models"
	"factory-tracker/internal/session"
	"factory-tracker/internal/tracker"
	"factory-tracker/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	VehiclePlate string `json:"vehiclePlate"`
}

type LoginRequest struct {
	Phone        string `json:"phone"`
	VehiclePlate string `json:"vehiclePlate"`
}

type DriverRequest struct {
	DriverID string `json:"driverId"`
}

type LocationRequest struct {
	DriverID string        `json:"driverId"`
	Location *LocationBody `json:"location"`
}

// LocationBody keeps lat and lng optional so a missing coordinate is rejected
// instead of decoding as zero
type LocationBody struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (b *LocationBody) toLocation() (models.Location, error) {
	if b == nil {
		return models.Location{}, fmt.Errorf("%w: location is required", tracker.ErrValidation)
	}
	if b.Lat == nil || b.Lng == nil {
		return models.Location{}, fmt.Errorf("%w: location lat and lng are required", tracker.ErrValidation)
	}
	return models.Location{Latitude: *b.Lat, Longitude: *b.Lng}, nil
}

type DestinationRequest struct {
	DriverID    string `json:"driverId"`
	Destination string `json:"destination"`
}

// GetDrivers returns the live snapshot, closest to the factory first
func GetDrivers(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, reg.ListDrivers())
	}
}

func GetDriverStats(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, reg.Stats())
	}
}

func GetFactoryLocation(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, reg.Factory())
	}
}

// RegisterDriver creates a driver, or brings back a removed one with the same phone and plate
func RegisterDriver(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := reg.Register(req.Name, req.Phone, req.VehiclePlate)
		if err != nil {
			respondTrackerError(w, r, err)
			return
		}

		utils.RespondSuccess(w, map[string]interface{}{
			"driverId": res.Driver.ID,
			"restored": res.Restored,
		})
	}
}

// LoginDriver marks the driver online and hands back a session token for the websocket
func LoginDriver(reg *tracker.Registry, tokens *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		driver, err := reg.Login(req.Phone, req.VehiclePlate)
		if err != nil {
			respondTrackerError(w, r, err)
			return
		}

		token, err := tokens.Issue(driver.ID)
		if err != nil {
			logger.Error("❌ failed to issue session token", zap.String("driver_id", driver.ID), zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
			return
		}

		utils.RespondSuccess(w, map[string]interface{}{
			"driver": driver,
			"token":  token,
		})
	}
}

func LogoutDriver(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DriverRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		driverID := resolveDriverID(r, req.DriverID)
		if driverID == "" {
			utils.RespondError(w, http.StatusBadRequest, "driverId is required")
			return
		}

		if _, err := reg.Logout(driverID); err != nil {
			respondTrackerError(w, r, err)
			return
		}

		utils.RespondSuccess(w, nil)
	}
}

// UpdateLocation ingests a GPS report from the driver app
func UpdateLocation(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LocationRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			metrics.ObserveLocationReport("http", err)
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		loc, err := req.Location.toLocation()
		if err != nil {
			metrics.ObserveLocationReport("http", err)
			respondTrackerError(w, r, err)
			return
		}

		res, err := reg.ReportLocation(resolveDriverID(r, req.DriverID), loc)
		metrics.ObserveLocationReport("http", err)
		if err != nil {
			respondTrackerError(w, r, err)
			return
		}

		utils.RespondSuccess(w, map[string]interface{}{
			"distanceToFactory": res.DistanceToFactory,
			"etaMinutes":        res.EtaMinutes,
		})
	}
}

func UpdateDestination(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DestinationRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		driverID := resolveDriverID(r, req.DriverID)
		if driverID == "" {
			utils.RespondError(w, http.StatusBadRequest, "driverId is required")
			return
		}

		if err := reg.SetDestination(driverID, req.Destination); err != nil {
			respondTrackerError(w, r, err)
			return
		}

		utils.RespondSuccess(w, nil)
	}
}

// DeleteDriver soft-deletes a driver from the admin dashboard
func DeleteDriver(reg *tracker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")

		if err := reg.Delete(driverID); err != nil {
			respondTrackerError(w, r, err)
			return
		}

		utils.RespondSuccess(w, map[string]interface{}{"driverId": driverID})
	}
}

// resolveDriverID prefers the id in the body and falls back to the session token
func resolveDriverID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if id, ok := middleware.DriverFromContext(r.Context()); ok {
		return id
	}
	return ""
}
