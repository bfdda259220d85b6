package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/dto"
	messagebrokerdto "vtc-platform/internal/dispatch-service/core/domain/message_broker_dto"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/geo"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/dispatch-service/core/pricing"
	"vtc-platform/internal/mylogger"
)

// IOfferCloser lets the order lifecycle tell the dispatch pool that an
// order is gone so pending offers get cancelled. Wired after construction
// to avoid a service cycle.
type IOfferCloser interface {
	OrderClosed(ctx context.Context, orderID, reason string)
}

type OrderService struct {
	ctx      context.Context
	mylog    mylogger.Logger
	orders   ports.IOrderRepo
	tracking ports.ITrackingRepo
	drivers  ports.IDriverInfoRepo
	status   *StatusService
	notifier ports.INotifier
	pub      ports.IEventPublisher
	calc     *pricing.Calculator
	closer   IOfferCloser

	now func() time.Time
}

func NewOrderService(
	ctx context.Context,
	log mylogger.Logger,
	orders ports.IOrderRepo,
	tracking ports.ITrackingRepo,
	drivers ports.IDriverInfoRepo,
	status *StatusService,
	notifier ports.INotifier,
	pub ports.IEventPublisher,
	calc *pricing.Calculator,
) *OrderService {
	return &OrderService{
		ctx:      ctx,
		mylog:    log,
		orders:   orders,
		tracking: tracking,
		drivers:  drivers,
		status:   status,
		notifier: notifier,
		pub:      pub,
		calc:     calc,
		now:      time.Now,
	}
}

func (os *OrderService) SetOfferCloser(c IOfferCloser) { os.closer = c }

func (os *OrderService) CreateOrder(ctx context.Context, req dto.OrderRequestDto) (dto.OrderResponseDto, model.Order, error) {
	log := os.mylog.Action("CreateOrder")

	if err := validateOrderRequest(req); err != nil {
		return dto.OrderResponseDto{}, model.Order{}, err
	}

	pickup := geo.Point{Latitude: *req.PickUpLatitude, Longitude: *req.PickUpLongitude}
	dest := geo.Point{Latitude: *req.DestinationLatitude, Longitude: *req.DestinationLongitude}
	distance := geo.Haversine(pickup, dest)

	now := os.now()
	isNight := os.calc.IsNightTime(now)

	vipZone := ""
	if req.VipZone != nil {
		vipZone = *req.VipZone
	}
	breakdown := os.calc.Quote(*req.VehicleType, *req.City, vipZone, distance, isNight)

	m := model.Order{
		OrderNumber: fmt.Sprintf("ORD_%s_%d", now.Format("20060102"), now.UnixNano()%1000000),
		CustomerID:  *req.CustomerId,
		VehicleType: *req.VehicleType,
		City:        *req.City,
		VipZone:     vipZone,
		Status:      model.OrderPending,

		PickupLatitude:       pickup.Latitude,
		PickupLongitude:      pickup.Longitude,
		PickupAddress:        *req.PickUpAddress,
		DestinationLatitude:  dest.Latitude,
		DestinationLongitude: dest.Longitude,
		DestinationAddress:   *req.DestinationAddress,
		DistanceKm:           distance,

		Price:   breakdown,
		IsNight: isNight,
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}

	log.Info("creating order",
		"order_number", m.OrderNumber,
		"customer_id", m.CustomerID,
		"total", breakdown.Total,
		"distance_km", distance,
		"is_night", isNight,
	)

	orderID, err := os.orders.CreateOrder(ctx, m)
	if err != nil {
		log.Error("cannot create order", err)
		return dto.OrderResponseDto{}, model.Order{}, err
	}
	m.ID = orderID
	m.CreatedAt = now

	os.track(ctx, orderID, model.EventOrderCreated, nil, map[string]any{
		"order_number": m.OrderNumber,
		"total":        breakdown.Total,
	})
	os.publishStatus(m, "")

	res := dto.OrderResponseDto{
		OrderId:     orderID,
		OrderNumber: m.OrderNumber,
		Status:      m.Status,
		DistanceKm:  distance,
		IsNight:     isNight,
		Price: dto.PriceBreakdownDto{
			BasePrice:              breakdown.BasePrice,
			DistancePrice:          breakdown.DistancePrice,
			VehicleAdditionalPrice: breakdown.VehicleAdditionalPrice,
			CityPrice:              breakdown.CityPrice,
			VipZonePrice:           breakdown.VipZonePrice,
			Total:                  breakdown.Total,
		},
	}
	return res, m, nil
}

// Accept assigns the order to the driver, first-accept-wins. The repo does
// the PENDING check and the assignment in one conditional update, so two
// near-simultaneous accepts cannot both pass.
func (os *OrderService) Accept(ctx context.Context, orderID, driverID string) (model.Order, ports.DriverInfo, error) {
	log := os.mylog.Action("Accept")
	now := os.now()

	ok, err := os.orders.TryAssignDriver(ctx, orderID, driverID, now)
	if err != nil {
		log.Error("cannot assign driver", err, "order_id", orderID, "driver_id", driverID)
		return model.Order{}, ports.DriverInfo{}, err
	}
	if !ok {
		log.Info("acceptance lost", "order_id", orderID, "driver_id", driverID)
		return model.Order{}, ports.DriverInfo{}, myerrors.ErrOrderTaken
	}

	if err := os.status.SetBusy(ctx, driverID); err != nil {
		log.Error("cannot flip driver to busy", err, "driver_id", driverID)
	}

	order, err := os.orders.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, ports.DriverInfo{}, err
	}

	info, err := os.drivers.GetDriverInfo(ctx, driverID)
	if err != nil {
		log.Warn("cannot load driver info for notification", "driver_id", driverID)
		info = ports.DriverInfo{DriverID: driverID}
	}

	os.track(ctx, orderID, model.EventOrderAccepted, nil, map[string]any{"driver_id": driverID})
	os.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutOrderAccepted, websocketdto.OrderAccepted{
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		DriverInfo:  info,
	}))
	os.publishStatus(order, "")

	log.Info("order accepted", "order_id", orderID, "driver_id", driverID)
	return order, info, nil
}

func (os *OrderService) StartTrip(ctx context.Context, orderID, driverID string) error {
	log := os.mylog.Action("StartTrip")
	now := os.now()

	order, err := os.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.DriverID != driverID {
		return fmt.Errorf("driver %s is not assigned to order %s", driverID, orderID)
	}

	ok, err := os.orders.SetStatus(ctx, orderID, model.OrderAccepted, model.OrderInProgress, now, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", myerrors.ErrInvalidTransition, order.Status, model.OrderInProgress)
	}

	os.track(ctx, orderID, model.EventTripStarted, nil, nil)
	os.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutTripStarted, websocketdto.TripStatus{
		OrderID: orderID,
		Status:  model.OrderInProgress,
	}))
	order.Status = model.OrderInProgress
	os.publishStatus(order, "")

	log.Info("trip started", "order_id", orderID)
	return nil
}

func (os *OrderService) CompleteTrip(ctx context.Context, orderID, driverID string) error {
	log := os.mylog.Action("CompleteTrip")
	now := os.now()

	order, err := os.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.DriverID != driverID {
		return fmt.Errorf("driver %s is not assigned to order %s", driverID, orderID)
	}

	ok, err := os.orders.SetStatus(ctx, orderID, model.OrderInProgress, model.OrderCompleted, now, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", myerrors.ErrInvalidTransition, order.Status, model.OrderCompleted)
	}

	if err := os.status.Release(ctx, driverID); err != nil {
		log.Error("cannot release driver", err, "driver_id", driverID)
	}

	os.track(ctx, orderID, model.EventTripCompleted, nil, map[string]any{"final_fare": order.Price.Total})
	os.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutTripCompleted, websocketdto.TripStatus{
		OrderID: orderID,
		Status:  model.OrderCompleted,
	}))
	order.Status = model.OrderCompleted
	os.publishStatus(order, "")

	log.Info("trip completed", "order_id", orderID, "driver_id", driverID)
	return nil
}

// Cancel ends a PENDING or ACCEPTED order. IN_PROGRESS trips cannot be
// cancelled, only completed.
func (os *OrderService) Cancel(ctx context.Context, orderID, reason string) (dto.OrderCancelResponseDto, error) {
	log := os.mylog.Action("Cancel")
	now := os.now()

	order, err := os.orders.GetOrder(ctx, orderID)
	if err != nil {
		return dto.OrderCancelResponseDto{}, err
	}

	ok, err := os.orders.SetStatus(ctx, orderID, model.OrderPending, model.OrderCancelled, now, reason)
	if err != nil {
		return dto.OrderCancelResponseDto{}, err
	}
	if !ok {
		ok, err = os.orders.SetStatus(ctx, orderID, model.OrderAccepted, model.OrderCancelled, now, reason)
		if err != nil {
			return dto.OrderCancelResponseDto{}, err
		}
	}
	if !ok {
		return dto.OrderCancelResponseDto{}, fmt.Errorf("%w: %s -> %s", myerrors.ErrInvalidTransition, order.Status, model.OrderCancelled)
	}

	if order.DriverID != "" {
		if err := os.status.Release(ctx, order.DriverID); err != nil {
			log.Error("cannot release driver", err, "driver_id", order.DriverID)
		}
		os.notifier.NotifyDriver(order.DriverID, websocketdto.Marshal(websocketdto.OutOrderCancelled, websocketdto.OrderCancelled{
			OrderID: orderID,
			Reason:  reason,
		}))
	}

	os.track(ctx, orderID, model.EventOrderCancelled, nil, map[string]any{"reason": reason})
	os.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutOrderCancelled, websocketdto.OrderCancelled{
		OrderID: orderID,
		Reason:  reason,
	}))
	order.Status = model.OrderCancelled
	os.publishStatus(order, reason)

	if os.closer != nil {
		os.closer.OrderClosed(ctx, orderID, reason)
	}

	log.Info("order cancelled", "order_id", orderID, "reason", reason)
	return dto.OrderCancelResponseDto{
		OrderId:     orderID,
		Status:      model.OrderCancelled,
		CancelledAt: now.Format(time.RFC3339),
		Message:     "Order cancelled successfully",
	}, nil
}

func (os *OrderService) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	return os.orders.GetOrder(ctx, orderID)
}

// BroadcastDriverPosition pushes the driver's last known position to the
// customer of the driver's active order. During an IN_PROGRESS trip the
// position is also appended to the tracking log.
func (os *OrderService) BroadcastDriverPosition(ctx context.Context, driverID string) error {
	pos, at, ok := os.status.Position(driverID)
	if !ok {
		return nil
	}

	order, err := os.orders.ActiveOrderByDriver(ctx, driverID)
	if err != nil {
		// no active order, nothing to broadcast
		return nil
	}

	os.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutDriverLocation, websocketdto.DriverLocation{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Timestamp: at.Format(time.RFC3339),
	}))

	if order.Status == model.OrderInProgress {
		os.track(ctx, order.ID, model.EventDriverPosition, &pos, nil)
	}
	return nil
}

func (os *OrderService) Overview(ctx context.Context) (dto.SystemOverviewDto, error) {
	active, err := os.orders.CountActiveOrders(ctx)
	if err != nil {
		return dto.SystemOverviewDto{}, err
	}
	return dto.SystemOverviewDto{
		ActiveOrders:  active,
		OnlineDrivers: os.status.OnlineCount(),
	}, nil
}

func (os *OrderService) track(ctx context.Context, orderID, eventType string, pos *geo.Point, meta map[string]any) {
	e := model.TrackingEvent{
		OrderID:   orderID,
		EventType: eventType,
		CreatedAt: os.now(),
	}
	if pos != nil {
		e.Latitude = pos.Latitude
		e.Longitude = pos.Longitude
		e.HasPosition = true
	}
	if meta != nil {
		data, err := json.Marshal(meta)
		if err == nil {
			e.Metadata = data
		}
	}
	if err := os.tracking.Append(ctx, e); err != nil {
		os.mylog.Action("track").Error("cannot append tracking event", err, "order_id", orderID, "event", eventType)
	}
}

func (os *OrderService) publishStatus(order model.Order, reason string) {
	if os.pub == nil {
		return
	}
	msg := messagebrokerdto.OrderStatusEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		CustomerID:  order.CustomerID,
		DriverID:    order.DriverID,
		Reason:      reason,
		Timestamp:   os.now().Format(time.RFC3339),
	}
	key := "order.status." + order.Status
	if err := os.pub.Publish(key, msg); err != nil {
		os.mylog.Action("publishStatus").Error("cannot publish order event", err, "order_id", order.ID)
	}
}
