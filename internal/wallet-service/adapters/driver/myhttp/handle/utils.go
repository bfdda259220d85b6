package handle

import (
	"encoding/json"
	"net/http"

	"vtc-platform/internal/wallet-service/core/domain/models"
)

const WaitTime = 10 // seconds, per-request budget

func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": err.Error(),
		"code":    code,
	})
}

// callerRef reads the identity headers set by the auth middleware.
func callerRef(r *http.Request) (models.UserRef, error) {
	return models.ParseUserRef(r.Header.Get("X-Role"), r.Header.Get("X-UserId"))
}
