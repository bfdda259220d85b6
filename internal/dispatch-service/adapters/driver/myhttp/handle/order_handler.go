package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vtc-platform/internal/dispatch-service/core/domain/dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/mylogger"
)

type OrderHandler struct {
	appCtx   context.Context
	orders   *services.OrderService
	dispatch *services.DispatchService
	log      mylogger.Logger
}

func NewOrderHandler(appCtx context.Context, orders *services.OrderService, dispatch *services.DispatchService, log mylogger.Logger) *OrderHandler {
	return &OrderHandler{
		appCtx:   appCtx,
		orders:   orders,
		dispatch: dispatch,
		log:      log,
	}
}

// CreateOrder prices and stores the order, then starts the driver fan-out
// on its own goroutine. The response returns immediately with the price
// breakdown; matching progress arrives over the customer's websocket.
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.OrderRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		res, order, err := h.orders.CreateOrder(r.Context(), req)
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		go func() {
			if err := h.dispatch.Dispatch(h.appCtx, order); err != nil && !errors.Is(err, myerrors.ErrNoDriversFound) {
				h.log.Action("CreateOrder").Error("dispatch failed", err, "order_id", order.ID)
			}
		}()

		JsonResponse(w, http.StatusCreated, res)
	}
}

func (h *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.PathValue("order_id")
		if orderID == "" {
			JsonError(w, http.StatusBadRequest, errors.New("missing order id"))
			return
		}

		req := dto.OrderCancelRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		res, err := h.orders.Cancel(r.Context(), orderID, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, myerrors.ErrOrderNotFound):
				JsonError(w, http.StatusNotFound, err)
			case errors.Is(err, myerrors.ErrInvalidTransition):
				JsonError(w, http.StatusBadRequest, err)
			default:
				JsonError(w, http.StatusInternalServerError, err)
			}
			return
		}
		JsonResponse(w, http.StatusOK, res)
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.PathValue("order_id")
		if orderID == "" {
			JsonError(w, http.StatusBadRequest, errors.New("missing order id"))
			return
		}

		order, err := h.orders.GetOrder(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, myerrors.ErrOrderNotFound) {
				JsonError(w, http.StatusNotFound, err)
				return
			}
			JsonError(w, http.StatusInternalServerError, err)
			return
		}
		JsonResponse(w, http.StatusOK, order)
	}
}
