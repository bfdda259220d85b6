package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/dispatch-service/core/domain/dto"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/dispatch-service/core/pricing"
	"vtc-platform/internal/mylogger"
)

// In-memory fakes backing the service tests. They honor the same
// conditional-update contracts as the postgres repos, so the races the
// services guard against are reproducible here.

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]model.Order
	seq    int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]model.Order)}
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, m model.Order) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("order-%d", f.seq)
	m.ID = id
	f.orders[id] = m
	return id, nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderID string) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return model.Order{}, myerrors.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) TryAssignDriver(_ context.Context, orderID, driverID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return false, myerrors.ErrOrderNotFound
	}
	if o.Status != model.OrderPending {
		return false, nil
	}
	o.Status = model.OrderAccepted
	o.DriverID = driverID
	o.AcceptedAt = at
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeOrderRepo) SetStatus(_ context.Context, orderID, from, to string, at time.Time, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return false, myerrors.ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	switch to {
	case model.OrderInProgress:
		o.StartedAt = at
	case model.OrderCompleted:
		o.CompletedAt = at
	case model.OrderCancelled:
		o.CancelledAt = at
		o.CancellationReason = reason
	}
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeOrderRepo) ActiveOrderByDriver(_ context.Context, driverID string) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.DriverID == driverID && (o.Status == model.OrderAccepted || o.Status == model.OrderInProgress) {
			return o, nil
		}
	}
	return model.Order{}, myerrors.ErrOrderNotFound
}

func (f *fakeOrderRepo) ActiveOrderByCustomer(_ context.Context, customerID string) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.CustomerID == customerID && o.Status != model.OrderCompleted && o.Status != model.OrderCancelled {
			return o, nil
		}
	}
	return model.Order{}, myerrors.ErrOrderNotFound
}

func (f *fakeOrderRepo) CountActiveOrders(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.orders {
		if o.Status == model.OrderPending || o.Status == model.OrderAccepted || o.Status == model.OrderInProgress {
			n++
		}
	}
	return n, nil
}

type fakePoolRepo struct {
	mu      sync.Mutex
	entries []*model.PoolEntry
	seq     int
}

func (f *fakePoolRepo) CreateEntry(_ context.Context, e model.PoolEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	e.ID = fmt.Sprintf("pool-%d", f.seq)
	f.entries = append(f.entries, &e)
	return e.ID, nil
}

func (f *fakePoolRepo) Resolve(_ context.Context, orderID, driverID, status, reason string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.OrderID == orderID && e.DriverID == driverID && e.RequestStatus == model.PoolPending {
			e.RequestStatus = status
			e.RejectReason = reason
			e.RespondedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePoolRepo) HasPending(_ context.Context, orderID, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.OrderID == orderID && e.DriverID == driverID && e.RequestStatus == model.PoolPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePoolRepo) CancelPending(_ context.Context, orderID, excludeDriverID, status string, at time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var drivers []string
	for _, e := range f.entries {
		if e.OrderID != orderID || e.DriverID == excludeDriverID || e.RequestStatus != model.PoolPending {
			continue
		}
		e.RequestStatus = status
		e.RespondedAt = at
		drivers = append(drivers, e.DriverID)
	}
	return drivers, nil
}

func (f *fakePoolRepo) CancelPendingForDriver(_ context.Context, driverID string, at time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []string
	for _, e := range f.entries {
		if e.DriverID != driverID || e.RequestStatus != model.PoolPending {
			continue
		}
		e.RequestStatus = model.PoolCancelled
		e.RespondedAt = at
		orders = append(orders, e.OrderID)
	}
	return orders, nil
}

func (f *fakePoolRepo) EntriesByOrder(_ context.Context, orderID string) ([]model.PoolEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PoolEntry
	for _, e := range f.entries {
		if e.OrderID == orderID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeStatusRepo struct {
	mu   sync.Mutex
	rows map[string]model.DriverStatus
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[string]model.DriverStatus)}
}

func (f *fakeStatusRepo) GetOrCreate(_ context.Context, driverID string) (model.DriverStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.rows[driverID]
	if !ok {
		st = model.DriverStatus{DriverID: driverID, Status: model.DriverOffline}
		f.rows[driverID] = st
	}
	return st, nil
}

func (f *fakeStatusRepo) SetStatus(_ context.Context, driverID, status, channelID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.rows[driverID]
	st.DriverID = driverID
	st.Status = status
	st.ChannelID = channelID
	st.UpdatedAt = at
	f.rows[driverID] = st
	return nil
}

func (f *fakeStatusRepo) UpdatePosition(_ context.Context, driverID string, lat, lng float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.rows[driverID]
	st.DriverID = driverID
	st.Latitude = lat
	st.Longitude = lng
	st.HasPosition = true
	st.UpdatedAt = at
	f.rows[driverID] = st
	return nil
}

func (f *fakeStatusRepo) OnlineCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, st := range f.rows {
		if st.Status == model.DriverOnline {
			n++
		}
	}
	return n, nil
}

type fakeTrackingRepo struct {
	mu     sync.Mutex
	events []model.TrackingEvent
}

func (f *fakeTrackingRepo) Append(_ context.Context, e model.TrackingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeTrackingRepo) ListByOrder(_ context.Context, orderID string) ([]model.TrackingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TrackingEvent
	for _, e := range f.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeTrackingRepo) eventTypes(orderID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.events {
		if e.OrderID == orderID {
			types = append(types, e.EventType)
		}
	}
	return types
}

type fakeDriverInfoRepo struct {
	infos map[string]ports.DriverInfo
}

func (f *fakeDriverInfoRepo) GetDriverInfo(_ context.Context, driverID string) (ports.DriverInfo, error) {
	info, ok := f.infos[driverID]
	if !ok {
		return ports.DriverInfo{}, myerrors.ErrDriverNotFound
	}
	return info, nil
}

func (f *fakeDriverInfoRepo) Exists(_ context.Context, driverID string) (bool, error) {
	_, ok := f.infos[driverID]
	return ok, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	toDriver  map[string][]websocketdto.Event
	toCust    map[string][]websocketdto.Event
	connected map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		toDriver:  make(map[string][]websocketdto.Event),
		toCust:    make(map[string][]websocketdto.Event),
		connected: make(map[string]bool),
	}
}

func (f *fakeNotifier) NotifyDriver(driverID string, e websocketdto.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toDriver[driverID] = append(f.toDriver[driverID], e)
	return nil
}

func (f *fakeNotifier) NotifyCustomer(customerID string, e websocketdto.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toCust[customerID] = append(f.toCust[customerID], e)
	return nil
}

func (f *fakeNotifier) IsDriverConnected(driverID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[driverID]
}

func (f *fakeNotifier) driverGot(driverID, eventType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.toDriver[driverID] {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func (f *fakeNotifier) customerGot(customerID, eventType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.toCust[customerID] {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePublisher) Publish(routingKey string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, routingKey)
	return nil
}

// harness wires the three services over the fakes the way the server does
// over the real adapters.
type harness struct {
	orders   *fakeOrderRepo
	pool     *fakePoolRepo
	statuses *fakeStatusRepo
	tracking *fakeTrackingRepo
	infos    *fakeDriverInfoRepo
	notifier *fakeNotifier
	pub      *fakePublisher

	status   *StatusService
	orderSvc *OrderService
	dispatch *DispatchService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	log := mylogger.Discard()
	cfg := &config.Dispatchconfig{
		SearchRadiusKm:  5,
		MaxRadiusKm:     30,
		RadiusStepKm:    5,
		MinCandidates:   1,
		OfferTimeoutSec: 30,
	}

	h := &harness{
		orders:   newFakeOrderRepo(),
		pool:     &fakePoolRepo{},
		statuses: newFakeStatusRepo(),
		tracking: &fakeTrackingRepo{},
		infos:    &fakeDriverInfoRepo{infos: make(map[string]ports.DriverInfo)},
		notifier: newFakeNotifier(),
		pub:      &fakePublisher{},
	}
	h.status = NewStatusService(h.statuses, cfg, log)
	h.orderSvc = NewOrderService(ctx, log, h.orders, h.tracking, h.infos, h.status, h.notifier, h.pub, pricing.NewCalculator(nil, log))
	h.dispatch = NewDispatchService(ctx, log, h.pool, h.orderSvc, h.status, h.notifier, cfg)
	return h
}

func ptr[T any](v T) *T { return &v }

func (h *harness) activeStates() int {
	h.dispatch.mu.Lock()
	defer h.dispatch.mu.Unlock()
	return len(h.dispatch.active)
}

// newOrder creates a PENDING order for the given customer near Douala.
func (h *harness) newOrder(t *testing.T, customerID string) model.Order {
	t.Helper()
	_, order, err := h.orderSvc.CreateOrder(context.Background(), orderRequest(customerID))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func orderRequest(customerID string) dto.OrderRequestDto {
	return dto.OrderRequestDto{
		CustomerId:           ptr(customerID),
		PickUpLatitude:       ptr(4.0511),
		PickUpLongitude:      ptr(9.7679),
		PickUpAddress:        ptr("Akwa, Douala"),
		DestinationLatitude:  ptr(4.0611),
		DestinationLongitude: ptr(9.7579),
		DestinationAddress:   ptr("Bonapriso, Douala"),
		VehicleType:          ptr("STANDARD"),
		City:                 ptr("DOUALA"),
	}
}

// driverOnline puts a driver online roughly km kilometers north of the
// standard pickup point.
func (h *harness) driverOnline(t *testing.T, driverID string, km float64) {
	t.Helper()
	lat := 4.0511 + km/111.0
	lng := 9.7679
	if err := h.status.SetOnline(context.Background(), driverID, "chan-"+driverID, "STANDARD", &lat, &lng); err != nil {
		t.Fatalf("set %s online: %v", driverID, err)
	}
	h.infos.infos[driverID] = ports.DriverInfo{DriverID: driverID, Name: driverID, VehicleType: "STANDARD"}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
