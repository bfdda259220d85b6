package services

import (
	"context"
	"sync"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/geo"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/mylogger"
)

// DispatchService fans a created order out to nearby drivers and resolves
// the first acceptance. All offer mutations for one order are serialized
// on that order's state lock; the repo's conditional updates remain the
// authoritative gate, so a second process cannot double-assign either.
type DispatchService struct {
	ctx      context.Context
	mylog    mylogger.Logger
	pool     ports.IPoolRepo
	orders   *OrderService
	status   *StatusService
	notifier ports.INotifier
	cfg      *config.Dispatchconfig

	now func() time.Time

	mu     sync.Mutex
	active map[string]*offerState
}

type offerState struct {
	mu          sync.Mutex
	accepted    bool
	outstanding int
	// detached marks a state with no Dispatch loop behind it; the caller
	// that created it removes it again via forget.
	detached  bool
	done      chan struct{}
	closeOnce sync.Once
}

func (st *offerState) finish() {
	st.closeOnce.Do(func() { close(st.done) })
}

func NewDispatchService(
	ctx context.Context,
	log mylogger.Logger,
	pool ports.IPoolRepo,
	orders *OrderService,
	status *StatusService,
	notifier ports.INotifier,
	cfg *config.Dispatchconfig,
) *DispatchService {
	d := &DispatchService{
		ctx:      ctx,
		mylog:    log,
		pool:     pool,
		orders:   orders,
		status:   status,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		active:   make(map[string]*offerState),
	}
	orders.SetOfferCloser(d)
	return d
}

// Dispatch offers the order to every candidate in range, nearest first,
// and blocks until one driver accepts, every offer resolves without an
// acceptance, or ctx ends. Callers run it on its own goroutine.
func (d *DispatchService) Dispatch(ctx context.Context, order model.Order) error {
	log := d.mylog.Action("Dispatch").With("order_id", order.ID)

	pickup := geo.Point{Latitude: order.PickupLatitude, Longitude: order.PickupLongitude}
	res := d.status.FindNearby(pickup, order.VehicleType)
	log.Info("driver search finished",
		"candidates", len(res.Candidates),
		"radius_km", res.RadiusKm,
		"max_reached", res.MaxReached,
	)

	if len(res.Candidates) == 0 {
		d.noDriversFound(ctx, order, res.RadiusKm)
		return myerrors.ErrNoDriversFound
	}

	st := &offerState{
		outstanding: len(res.Candidates),
		done:        make(chan struct{}),
	}
	d.mu.Lock()
	d.active[order.ID] = st
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.active, order.ID)
		d.mu.Unlock()
	}()

	timeout := time.Duration(d.cfg.OfferTimeoutSec) * time.Second
	for rank, cand := range res.Candidates {
		entry := model.PoolEntry{
			OrderID:       order.ID,
			DriverID:      cand.DriverID,
			PriorityRank:  rank + 1,
			DistanceKm:    cand.DistanceKm,
			RequestStatus: model.PoolPending,
			RequestedAt:   d.now(),
		}
		if _, err := d.pool.CreateEntry(ctx, entry); err != nil {
			log.Error("cannot create pool entry", err, "driver_id", cand.DriverID)
			st.mu.Lock()
			d.decrementLocked(st)
			st.mu.Unlock()
			continue
		}

		d.notifier.NotifyDriver(cand.DriverID, websocketdto.Marshal(websocketdto.OutOrderRequest, websocketdto.OrderRequest{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			PickupLat:     order.PickupLatitude,
			PickupLng:     order.PickupLongitude,
			PickupAddress: order.PickupAddress,
			DestLat:       order.DestinationLatitude,
			DestLng:       order.DestinationLongitude,
			DestAddress:   order.DestinationAddress,
			VehicleType:   order.VehicleType,
			DistanceKm:    cand.DistanceKm,
			EstimatedFare: order.Price.Total,
			TimeoutSec:    d.cfg.OfferTimeoutSec,
		}))
		go d.expireOffer(order.ID, cand.DriverID, timeout)
	}

	select {
	case <-st.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	st.mu.Lock()
	accepted := st.accepted
	st.mu.Unlock()
	if !accepted {
		d.noDriversFound(ctx, order, res.RadiusKm)
		return myerrors.ErrNoDriversFound
	}
	return nil
}

// AcceptOffer handles accept_order from a driver socket. Exactly one
// driver wins; the rest get ErrOrderTaken / ErrNoPendingOffer, which the
// socket layer reports as order_acceptance_failed.
func (d *DispatchService) AcceptOffer(ctx context.Context, orderID, driverID string) (model.Order, error) {
	log := d.mylog.Action("AcceptOffer").With("order_id", orderID, "driver_id", driverID)
	st := d.state(orderID)
	defer d.forget(orderID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	pending, err := d.pool.HasPending(ctx, orderID, driverID)
	if err != nil {
		return model.Order{}, err
	}
	if !pending {
		log.Warn("accept without a pending offer")
		return model.Order{}, myerrors.ErrNoPendingOffer
	}

	order, _, err := d.orders.Accept(ctx, orderID, driverID)
	if err != nil {
		// lost the race (or a real failure): the offer is finished
		// either way
		now := d.now()
		if _, rerr := d.pool.Resolve(ctx, orderID, driverID, model.PoolCancelled, "superseded", now); rerr != nil {
			log.Error("cannot cancel superseded offer", rerr)
		}
		d.decrementLocked(st)
		return model.Order{}, err
	}

	now := d.now()
	if _, err := d.pool.Resolve(ctx, orderID, driverID, model.PoolAccepted, "", now); err != nil {
		log.Error("cannot mark pool entry accepted", err)
	}

	cancelled, err := d.pool.CancelPending(ctx, orderID, driverID, model.PoolCancelled, now)
	if err != nil {
		log.Error("cannot cancel sibling offers", err)
	}
	for _, other := range cancelled {
		d.notifier.NotifyDriver(other, websocketdto.Marshal(websocketdto.OutOrderCancelled, websocketdto.OrderCancelled{
			OrderID: orderID,
			Reason:  "taken by another driver",
		}))
	}

	d.notifier.NotifyDriver(driverID, websocketdto.Marshal(websocketdto.OutStatusUpdate, websocketdto.StatusUpdate{
		Status:  model.DriverBusy,
		Message: "Order assigned",
	}))

	st.accepted = true
	st.finish()

	log.Info("offer accepted", "siblings_cancelled", len(cancelled))
	return order, nil
}

// RejectOffer records the driver's refusal; the order stays PENDING for
// the remaining candidates.
func (d *DispatchService) RejectOffer(ctx context.Context, orderID, driverID, reason string) error {
	st := d.state(orderID)
	defer d.forget(orderID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	ok, err := d.pool.Resolve(ctx, orderID, driverID, model.PoolRejected, reason, d.now())
	if err != nil {
		return err
	}
	if !ok {
		return myerrors.ErrNoPendingOffer
	}

	d.mylog.Action("RejectOffer").Info("offer rejected", "order_id", orderID, "driver_id", driverID, "reason", reason)
	d.decrementLocked(st)
	return nil
}

// DriverDisconnected cancels the driver's pending offers across all
// orders so their dispatch loops do not wait out the full timeout.
func (d *DispatchService) DriverDisconnected(ctx context.Context, driverID string) {
	orderIDs, err := d.pool.CancelPendingForDriver(ctx, driverID, d.now())
	if err != nil {
		d.mylog.Action("DriverDisconnected").Error("cannot cancel pending offers", err, "driver_id", driverID)
		return
	}
	for _, orderID := range orderIDs {
		st := d.state(orderID)
		st.mu.Lock()
		d.decrementLocked(st)
		st.mu.Unlock()
		d.forget(orderID, st)
	}
}

// OrderClosed implements IOfferCloser: the order was cancelled outside the
// dispatch loop, withdraw every outstanding offer.
func (d *DispatchService) OrderClosed(ctx context.Context, orderID, reason string) {
	st := d.state(orderID)
	defer d.forget(orderID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	cancelled, err := d.pool.CancelPending(ctx, orderID, "", model.PoolCancelled, d.now())
	if err != nil {
		d.mylog.Action("OrderClosed").Error("cannot cancel offers", err, "order_id", orderID)
	}
	for _, driverID := range cancelled {
		d.notifier.NotifyDriver(driverID, websocketdto.Marshal(websocketdto.OutOrderCancelled, websocketdto.OrderCancelled{
			OrderID: orderID,
			Reason:  reason,
		}))
	}
	st.accepted = true // not a no-drivers outcome, just stop the loop quietly
	st.finish()
}

func (d *DispatchService) expireOffer(orderID, driverID string, timeout time.Duration) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-t.C:
	case <-d.ctx.Done():
		return
	}

	st := d.state(orderID)
	defer d.forget(orderID, st)
	st.mu.Lock()
	defer st.mu.Unlock()

	ok, err := d.pool.Resolve(d.ctx, orderID, driverID, model.PoolTimeout, "offer timed out", d.now())
	if err != nil {
		d.mylog.Action("expireOffer").Error("cannot time out offer", err, "order_id", orderID, "driver_id", driverID)
		return
	}
	if ok {
		d.mylog.Action("expireOffer").Info("offer timed out", "order_id", orderID, "driver_id", driverID)
		d.decrementLocked(st)
	}
}

func (d *DispatchService) noDriversFound(ctx context.Context, order model.Order, radiusKm float64) {
	d.mylog.Action("noDriversFound").Warn("no drivers found", "order_id", order.ID, "radius_km", radiusKm)
	d.orders.track(ctx, order.ID, model.EventNoDriversFound, nil, map[string]any{"radius_km": radiusKm})
	d.notifier.NotifyCustomer(order.CustomerID, websocketdto.Marshal(websocketdto.OutNoDriversFound, websocketdto.NoDriversFound{
		OrderID:      order.ID,
		RadiusUsedKm: radiusKm,
	}))
}

// state returns the live fan-out state for the order, creating a detached
// one when the dispatch loop is not running (late accept after restart).
func (d *DispatchService) state(orderID string) *offerState {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.active[orderID]
	if !ok {
		st = &offerState{detached: true, done: make(chan struct{})}
		d.active[orderID] = st
	}
	return st
}

// forget drops a detached state once its caller is done with it. States
// owned by a running Dispatch loop are removed by the loop's own defer.
func (d *DispatchService) forget(orderID string, st *offerState) {
	if !st.detached {
		return
	}
	d.mu.Lock()
	if d.active[orderID] == st {
		delete(d.active, orderID)
	}
	d.mu.Unlock()
}

// decrementLocked assumes st.mu is held.
func (d *DispatchService) decrementLocked(st *offerState) {
	if st.outstanding > 0 {
		st.outstanding--
	}
	if st.outstanding == 0 && !st.accepted {
		st.finish()
	}
}
