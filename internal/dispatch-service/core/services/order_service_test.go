package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
)

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	res, order, err := h.orderSvc.CreateOrder(context.Background(), orderRequest("cust-1"))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != model.OrderPending {
		t.Errorf("status = %s, want PENDING", order.Status)
	}
	if res.OrderId == "" || res.OrderNumber == "" {
		t.Errorf("response missing ids: %+v", res)
	}
	if res.DistanceKm <= 0 {
		t.Errorf("distance = %v, want > 0", res.DistanceKm)
	}
	if res.Price.Total != res.Price.BasePrice+res.Price.DistancePrice+res.Price.VehicleAdditionalPrice+res.Price.CityPrice+res.Price.VipZonePrice {
		t.Errorf("price total %v is not the sum of its components", res.Price.Total)
	}

	types := h.tracking.eventTypes(order.ID)
	if len(types) != 1 || types[0] != model.EventOrderCreated {
		t.Errorf("tracking events = %v, want [order_created]", types)
	}
	if len(h.pub.keys) != 1 || h.pub.keys[0] != "order.status.PENDING" {
		t.Errorf("published keys = %v, want [order.status.PENDING]", h.pub.keys)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := map[string]func() error{
		"missing customer": func() error {
			req := orderRequest("")
			req.CustomerId = nil
			_, _, err := h.orderSvc.CreateOrder(ctx, req)
			return err
		},
		"missing pickup": func() error {
			req := orderRequest("cust-1")
			req.PickUpLatitude = nil
			_, _, err := h.orderSvc.CreateOrder(ctx, req)
			return err
		},
		"latitude out of range": func() error {
			req := orderRequest("cust-1")
			req.PickUpLatitude = ptr(123.0)
			_, _, err := h.orderSvc.CreateOrder(ctx, req)
			return err
		},
		"empty vehicle type": func() error {
			req := orderRequest("cust-1")
			req.VehicleType = ptr("")
			_, _, err := h.orderSvc.CreateOrder(ctx, req)
			return err
		},
		"empty city": func() error {
			req := orderRequest("cust-1")
			req.City = nil
			_, _, err := h.orderSvc.CreateOrder(ctx, req)
			return err
		},
	}
	for name, run := range cases {
		if err := run(); err == nil {
			t.Errorf("%s: expected a validation error", name)
		} else if !strings.HasPrefix(err.Error(), "invalid ") {
			t.Errorf("%s: err = %q, want an invalid-field message", name, err)
		}
	}
}

func TestTripLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if h.status.Status("d1") != model.DriverBusy {
		t.Fatalf("driver status after accept = %s, want BUSY", h.status.Status("d1"))
	}

	if err := h.orderSvc.StartTrip(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	got, _ := h.orders.GetOrder(ctx, order.ID)
	if got.Status != model.OrderInProgress {
		t.Fatalf("status after start = %s, want IN_PROGRESS", got.Status)
	}

	if err := h.orderSvc.CompleteTrip(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("complete trip: %v", err)
	}
	got, _ = h.orders.GetOrder(ctx, order.ID)
	if got.Status != model.OrderCompleted {
		t.Fatalf("status after complete = %s, want COMPLETED", got.Status)
	}
	if h.status.Status("d1") != model.DriverOnline {
		t.Errorf("driver status after completion = %s, want ONLINE", h.status.Status("d1"))
	}

	for _, ev := range []string{websocketdto.OutOrderAccepted, websocketdto.OutTripStarted, websocketdto.OutTripCompleted} {
		if !h.notifier.customerGot("cust-1", ev) {
			t.Errorf("customer never got %s", ev)
		}
	}

	want := []string{model.EventOrderCreated, model.EventOrderAccepted, model.EventTripStarted, model.EventTripCompleted}
	got2 := h.tracking.eventTypes(order.ID)
	if len(got2) != len(want) {
		t.Fatalf("tracking events = %v, want %v", got2, want)
	}
	for i := range want {
		if got2[i] != want[i] {
			t.Errorf("tracking event[%d] = %s, want %s", i, got2[i], want[i])
		}
	}
}

func TestStartTripWrongDriver(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := h.orderSvc.StartTrip(ctx, order.ID, "d2"); err == nil {
		t.Fatal("unassigned driver started the trip")
	}
}

func TestStartTripBeforeAccept(t *testing.T) {
	h := newHarness(t)
	order := h.newOrder(t, "cust-1")

	err := h.orderSvc.StartTrip(context.Background(), order.ID, "d1")
	if err == nil {
		t.Fatal("trip started on a PENDING order")
	}
}

func TestCompleteTripRequiresInProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	err := h.orderSvc.CompleteTrip(ctx, order.ID, "d1")
	if !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")

	res, err := h.orderSvc.Cancel(ctx, order.ID, "waited too long")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Status != model.OrderCancelled {
		t.Errorf("response status = %s, want CANCELLED", res.Status)
	}
	got, _ := h.orders.GetOrder(ctx, order.ID)
	if got.CancellationReason != "waited too long" {
		t.Errorf("reason = %q, want the caller's reason", got.CancellationReason)
	}
	if !h.notifier.customerGot("cust-1", websocketdto.OutOrderCancelled) {
		t.Error("customer never got order_cancelled")
	}
}

func TestCancelAcceptedOrderReleasesDriver(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.orderSvc.Cancel(ctx, order.ID, "plans changed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if h.status.Status("d1") != model.DriverOnline {
		t.Errorf("driver status = %s, want ONLINE after cancel", h.status.Status("d1"))
	}
	if !h.notifier.driverGot("d1", websocketdto.OutOrderCancelled) {
		t.Error("assigned driver never got order_cancelled")
	}
}

func TestCancelInProgressFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := h.orderSvc.StartTrip(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("start trip: %v", err)
	}

	_, err := h.orderSvc.Cancel(ctx, order.ID, "too late")
	if !errors.Is(err, myerrors.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestBroadcastDriverPosition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	if _, _, err := h.orderSvc.Accept(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := h.status.UpdatePosition(ctx, "d1", 4.06, 9.77); err != nil {
		t.Fatalf("update position: %v", err)
	}
	if err := h.orderSvc.BroadcastDriverPosition(ctx, "d1"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if !h.notifier.customerGot("cust-1", websocketdto.OutDriverLocation) {
		t.Fatal("customer never got driver_location")
	}

	// before the trip starts nothing lands in the tracking log
	for _, ev := range h.tracking.eventTypes(order.ID) {
		if ev == model.EventDriverPosition {
			t.Fatal("position tracked before the trip started")
		}
	}

	if err := h.orderSvc.StartTrip(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if err := h.orderSvc.BroadcastDriverPosition(ctx, "d1"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	found := false
	for _, ev := range h.tracking.eventTypes(order.ID) {
		if ev == model.EventDriverPosition {
			found = true
		}
	}
	if !found {
		t.Fatal("position not tracked during the trip")
	}
}

func TestOverview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.newOrder(t, "cust-1")
	h.newOrder(t, "cust-2")
	h.driverOnline(t, "d1", 1)
	h.driverOnline(t, "d2", 2)

	ov, err := h.orderSvc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.ActiveOrders != 2 {
		t.Errorf("active orders = %d, want 2", ov.ActiveOrders)
	}
	if ov.OnlineDrivers != 2 {
		t.Errorf("online drivers = %d, want 2", ov.OnlineDrivers)
	}
}
