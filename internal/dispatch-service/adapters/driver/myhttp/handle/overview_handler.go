package handle

import (
	"net/http"

	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/mylogger"
)

// OverviewHandler exposes the admin system overview: active orders and
// online drivers.
type OverviewHandler struct {
	orders *services.OrderService
	log    mylogger.Logger
}

func NewOverviewHandler(orders *services.OrderService, log mylogger.Logger) *OverviewHandler {
	return &OverviewHandler{orders: orders, log: log}
}

func (h *OverviewHandler) SystemOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.orders.Overview(r.Context())
		if err != nil {
			JsonError(w, http.StatusInternalServerError, err)
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}
