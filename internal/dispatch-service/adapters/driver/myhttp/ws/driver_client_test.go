package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/dispatch-service/core/pricing"
	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/mylogger"

	"github.com/gorilla/websocket"
)

type stubStatusRepo struct {
	mu   sync.Mutex
	rows map[string]model.DriverStatus
}

func (f *stubStatusRepo) GetOrCreate(_ context.Context, driverID string) (model.DriverStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.rows[driverID]
	if !ok {
		st = model.DriverStatus{DriverID: driverID, Status: model.DriverOffline}
		f.rows[driverID] = st
	}
	return st, nil
}

func (f *stubStatusRepo) SetStatus(_ context.Context, driverID, status, channelID string, at time.Time) error {
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

func (f *stubStatusRepo) UpdatePosition(_ context.Context, driverID string, lat, lng float64, at time.Time) error {
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

func (f *stubStatusRepo) OnlineCount(_ context.Context) (int, error) {
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

type stubOrderRepo struct{}

func (stubOrderRepo) CreateOrder(context.Context, model.Order) (string, error) { return "", nil }
func (stubOrderRepo) GetOrder(context.Context, string) (model.Order, error) {
	return model.Order{}, myerrors.ErrOrderNotFound
}
func (stubOrderRepo) TryAssignDriver(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}
func (stubOrderRepo) SetStatus(context.Context, string, string, string, time.Time, string) (bool, error) {
	return false, nil
}
func (stubOrderRepo) ActiveOrderByDriver(context.Context, string) (model.Order, error) {
	return model.Order{}, myerrors.ErrOrderNotFound
}
func (stubOrderRepo) ActiveOrderByCustomer(context.Context, string) (model.Order, error) {
	return model.Order{}, myerrors.ErrOrderNotFound
}
func (stubOrderRepo) CountActiveOrders(context.Context) (int, error) { return 0, nil }

type stubPoolRepo struct{}

func (stubPoolRepo) CreateEntry(context.Context, model.PoolEntry) (string, error) { return "", nil }
func (stubPoolRepo) Resolve(context.Context, string, string, string, string, time.Time) (bool, error) {
	return false, nil
}
func (stubPoolRepo) HasPending(context.Context, string, string) (bool, error) { return false, nil }
func (stubPoolRepo) CancelPending(context.Context, string, string, string, time.Time) ([]string, error) {
	return nil, nil
}
func (stubPoolRepo) CancelPendingForDriver(context.Context, string, time.Time) ([]string, error) {
	return nil, nil
}
func (stubPoolRepo) EntriesByOrder(context.Context, string) ([]model.PoolEntry, error) {
	return nil, nil
}

type stubTrackingRepo struct{}

func (stubTrackingRepo) Append(context.Context, model.TrackingEvent) error { return nil }
func (stubTrackingRepo) ListByOrder(context.Context, string) ([]model.TrackingEvent, error) {
	return nil, nil
}

type stubInfoRepo struct{}

func (stubInfoRepo) GetDriverInfo(context.Context, string) (ports.DriverInfo, error) {
	return ports.DriverInfo{}, nil
}
func (stubInfoRepo) Exists(context.Context, string) (bool, error) { return true, nil }

type stubPublisher struct{}

func (stubPublisher) Publish(string, any) error { return nil }

type wsFixture struct {
	status *services.StatusService
	hub    *Hub
	srv    *httptest.Server
}

func newDriverSocketFixture(t *testing.T) *wsFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := mylogger.Discard()
	cfg := &config.Dispatchconfig{
		SearchRadiusKm:  5,
		MaxRadiusKm:     30,
		RadiusStepKm:    5,
		MinCandidates:   1,
		OfferTimeoutSec: 30,
	}

	hub := NewHub(log)
	status := services.NewStatusService(&stubStatusRepo{rows: make(map[string]model.DriverStatus)}, cfg, log)
	orders := services.NewOrderService(ctx, log, stubOrderRepo{}, stubTrackingRepo{}, stubInfoRepo{},
		status, hub, stubPublisher{}, pricing.NewCalculator(&config.Pricingconfig{}, log))
	dispatch := services.NewDispatchService(ctx, log, stubPoolRepo{}, orders, status, hub, cfg)

	mux := http.NewServeMux()
	mux.Handle("/ws/driver/{driver_id}/", DriverHandler(ctx, hub, log, stubInfoRepo{},
		status, dispatch, orders, time.Minute))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &wsFixture{status: status, hub: hub, srv: srv}
}

// dial connects a driver socket and consumes the connected status frame.
func (f *wsFixture) dial(t *testing.T, driverID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/driver/" + driverID + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", driverID, err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e websocketdto.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	if e.Type != websocketdto.OutStatusUpdate {
		t.Fatalf("first frame = %s, want %s", e.Type, websocketdto.OutStatusUpdate)
	}
	conn.SetReadDeadline(time.Time{})
	return conn
}

func wsWaitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDriverReconnectKeepsDriverOnline(t *testing.T) {
	f := newDriverSocketFixture(t)

	old := f.dial(t, "d1")
	fresh := f.dial(t, "d1")

	// the hub closes the replaced connection on the second dial
	old.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := old.ReadMessage(); err != nil {
			break
		}
	}

	// the replaced connection's teardown must not flip the driver offline
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if got := f.status.Status("d1"); got != model.DriverOnline {
			t.Fatalf("driver status = %s after a reconnect, want %s", got, model.DriverOnline)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !f.hub.IsDriverConnected("d1") {
		t.Fatal("driver no longer connected after a reconnect")
	}
	if n := f.status.OnlineCount(); n != 1 {
		t.Fatalf("online count = %d, want 1", n)
	}

	// the fresh connection still serves the driver
	if err := fresh.WriteJSON(websocketdto.Marshal(websocketdto.InLocationUpdate, websocketdto.LocationUpdate{
		Latitude:  4.05,
		Longitude: 9.7,
	})); err != nil {
		t.Fatalf("write location update: %v", err)
	}
	wsWaitFor(t, 2*time.Second, func() bool {
		p, _, ok := f.status.Position("d1")
		return ok && p.Latitude == 4.05
	}, "position to reach the status service")
}

func TestDisconnectTakesDriverOffline(t *testing.T) {
	f := newDriverSocketFixture(t)

	conn := f.dial(t, "d1")
	wsWaitFor(t, 2*time.Second, func() bool {
		return f.status.Status("d1") == model.DriverOnline
	}, "driver to come online")

	conn.Close()
	wsWaitFor(t, 2*time.Second, func() bool {
		return f.status.Status("d1") == model.DriverOffline && !f.hub.IsDriverConnected("d1")
	}, "driver to go offline after the disconnect")
}
