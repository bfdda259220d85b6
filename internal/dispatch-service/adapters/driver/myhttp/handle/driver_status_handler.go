package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"vtc-platform/internal/dispatch-service/core/domain/dto"
	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/mylogger"
)

// DriverStatusHandler serves the REST status toggles. The websocket path
// flips the same store on connect/disconnect; these endpoints exist for
// clients that toggle availability without an open socket.
type DriverStatusHandler struct {
	status *services.StatusService
	log    mylogger.Logger
}

func NewDriverStatusHandler(status *services.StatusService, log mylogger.Logger) *DriverStatusHandler {
	return &DriverStatusHandler{status: status, log: log}
}

func (h *DriverStatusHandler) GoOnline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.DriverStatusRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.DriverId == nil || *req.DriverId == "" {
			JsonError(w, http.StatusBadRequest, errors.New("missing driver id"))
			return
		}

		vehicleType := ""
		if req.VehicleType != nil {
			vehicleType = *req.VehicleType
		}
		if err := h.status.SetOnline(r.Context(), *req.DriverId, "", vehicleType, req.Latitude, req.Longitude); err != nil {
			JsonError(w, http.StatusInternalServerError, err)
			return
		}

		JsonResponse(w, http.StatusOK, dto.DriverStatusResponseDto{
			DriverId: *req.DriverId,
			Status:   "ONLINE",
			Message:  "You are now online and ready to accept rides",
		})
	}
}

func (h *DriverStatusHandler) GoOffline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.DriverStatusRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.DriverId == nil || *req.DriverId == "" {
			JsonError(w, http.StatusBadRequest, errors.New("missing driver id"))
			return
		}

		if err := h.status.SetOffline(r.Context(), *req.DriverId); err != nil {
			JsonError(w, http.StatusInternalServerError, err)
			return
		}

		JsonResponse(w, http.StatusOK, dto.DriverStatusResponseDto{
			DriverId: *req.DriverId,
			Status:   "OFFLINE",
			Message:  "You are now offline",
		})
	}
}
