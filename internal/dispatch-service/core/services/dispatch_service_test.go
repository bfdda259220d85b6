package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
)

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")

	drivers := []string{"d1", "d2", "d3", "d4", "d5"}
	for rank, id := range drivers {
		h.driverOnline(t, id, float64(rank+1))
		if _, err := h.pool.CreateEntry(ctx, model.PoolEntry{
			OrderID:       order.ID,
			DriverID:      id,
			PriorityRank:  rank + 1,
			RequestStatus: model.PoolPending,
			RequestedAt:   time.Now(),
		}); err != nil {
			t.Fatalf("create pool entry: %v", err)
		}
	}

	var wg sync.WaitGroup
	results := make(chan error, len(drivers))
	winners := make(chan string, len(drivers))
	for _, id := range drivers {
		wg.Add(1)
		go func(driverID string) {
			defer wg.Done()
			_, err := h.dispatch.AcceptOffer(ctx, order.ID, driverID)
			if err == nil {
				winners <- driverID
			}
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)
	close(winners)

	won := 0
	for err := range results {
		if err == nil {
			won++
			continue
		}
		if !errors.Is(err, myerrors.ErrOrderTaken) && !errors.Is(err, myerrors.ErrNoPendingOffer) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d drivers won the order, want exactly 1", won)
	}

	winner := <-winners
	got, err := h.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != model.OrderAccepted {
		t.Errorf("order status = %s, want ACCEPTED", got.Status)
	}
	if got.DriverID != winner {
		t.Errorf("order driver = %s, want winner %s", got.DriverID, winner)
	}

	// exactly one ACCEPTED pool entry, every other entry terminal
	entries, _ := h.pool.EntriesByOrder(ctx, order.ID)
	accepted := 0
	for _, e := range entries {
		if e.RequestStatus == model.PoolAccepted {
			accepted++
		}
		if e.RequestStatus == model.PoolPending {
			t.Errorf("driver %s still holds a pending offer", e.DriverID)
		}
	}
	if accepted != 1 {
		t.Errorf("%d entries ACCEPTED, want 1", accepted)
	}

	// losers whose offers were withdrawn hear about it
	for _, id := range drivers {
		if id == winner {
			continue
		}
		if !h.notifier.driverGot(id, websocketdto.OutOrderCancelled) {
			t.Errorf("driver %s never got %s", id, websocketdto.OutOrderCancelled)
		}
	}
	if !h.notifier.driverGot(winner, websocketdto.OutStatusUpdate) {
		t.Errorf("winner never got %s", websocketdto.OutStatusUpdate)
	}
}

func TestSecondAcceptAfterWinLoses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")

	for _, id := range []string{"d1", "d2"} {
		h.driverOnline(t, id, 1)
		h.pool.CreateEntry(ctx, model.PoolEntry{
			OrderID: order.ID, DriverID: id, RequestStatus: model.PoolPending, RequestedAt: time.Now(),
		})
	}

	if _, err := h.dispatch.AcceptOffer(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := h.dispatch.AcceptOffer(ctx, order.ID, "d2")
	if !errors.Is(err, myerrors.ErrOrderTaken) && !errors.Is(err, myerrors.ErrNoPendingOffer) {
		t.Fatalf("second accept err = %v, want order taken / no pending offer", err)
	}
}

func TestAcceptWithoutOffer(t *testing.T) {
	h := newHarness(t)
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	_, err := h.dispatch.AcceptOffer(context.Background(), order.ID, "d1")
	if !errors.Is(err, myerrors.ErrNoPendingOffer) {
		t.Fatalf("err = %v, want ErrNoPendingOffer", err)
	}
}

func TestDispatchAcceptedEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)
	h.driverOnline(t, "d2", 2)

	dispatchErr := make(chan error, 1)
	go func() { dispatchErr <- h.dispatch.Dispatch(ctx, order) }()

	waitFor(t, 2*time.Second, func() bool {
		return h.notifier.driverGot("d1", websocketdto.OutOrderRequest) &&
			h.notifier.driverGot("d2", websocketdto.OutOrderRequest)
	}, "offers to reach both drivers")

	if _, err := h.dispatch.AcceptOffer(ctx, order.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	select {
	case err := <-dispatchErr:
		if err != nil {
			t.Fatalf("dispatch returned %v after an acceptance", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after the acceptance")
	}

	if h.status.Status("d1") != model.DriverBusy {
		t.Errorf("winner status = %s, want BUSY", h.status.Status("d1"))
	}
	if !h.notifier.driverGot("d2", websocketdto.OutOrderCancelled) {
		t.Error("losing driver never got order_cancelled")
	}
	if !h.notifier.customerGot("cust-1", websocketdto.OutOrderAccepted) {
		t.Error("customer never got order_accepted")
	}
}

func TestDispatchNoDriversOnline(t *testing.T) {
	h := newHarness(t)
	order := h.newOrder(t, "cust-1")

	err := h.dispatch.Dispatch(context.Background(), order)
	if !errors.Is(err, myerrors.ErrNoDriversFound) {
		t.Fatalf("err = %v, want ErrNoDriversFound", err)
	}
	if !h.notifier.customerGot("cust-1", websocketdto.OutNoDriversFound) {
		t.Error("customer never got no_drivers_found")
	}
}

func TestDispatchAllOffersRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)
	h.driverOnline(t, "d2", 2)

	dispatchErr := make(chan error, 1)
	go func() { dispatchErr <- h.dispatch.Dispatch(ctx, order) }()

	waitFor(t, 2*time.Second, func() bool {
		return h.notifier.driverGot("d1", websocketdto.OutOrderRequest) &&
			h.notifier.driverGot("d2", websocketdto.OutOrderRequest)
	}, "offers to reach both drivers")

	if err := h.dispatch.RejectOffer(ctx, order.ID, "d1", "too far"); err != nil {
		t.Fatalf("reject d1: %v", err)
	}
	if err := h.dispatch.RejectOffer(ctx, order.ID, "d2", "busy soon"); err != nil {
		t.Fatalf("reject d2: %v", err)
	}

	select {
	case err := <-dispatchErr:
		if !errors.Is(err, myerrors.ErrNoDriversFound) {
			t.Fatalf("dispatch err = %v, want ErrNoDriversFound", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after every offer was rejected")
	}
}

func TestRejectTwiceFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.pool.CreateEntry(ctx, model.PoolEntry{
		OrderID: order.ID, DriverID: "d1", RequestStatus: model.PoolPending, RequestedAt: time.Now(),
	})

	if err := h.dispatch.RejectOffer(ctx, order.ID, "d1", "no"); err != nil {
		t.Fatalf("first reject: %v", err)
	}
	if err := h.dispatch.RejectOffer(ctx, order.ID, "d1", "no"); !errors.Is(err, myerrors.ErrNoPendingOffer) {
		t.Fatalf("second reject err = %v, want ErrNoPendingOffer", err)
	}
}

func TestDriverDisconnectedReleasesDispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	dispatchErr := make(chan error, 1)
	go func() { dispatchErr <- h.dispatch.Dispatch(ctx, order) }()

	waitFor(t, 2*time.Second, func() bool {
		return h.notifier.driverGot("d1", websocketdto.OutOrderRequest)
	}, "offer to reach the driver")

	h.dispatch.DriverDisconnected(ctx, "d1")

	select {
	case err := <-dispatchErr:
		if !errors.Is(err, myerrors.ErrNoDriversFound) {
			t.Fatalf("dispatch err = %v, want ErrNoDriversFound", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after the only candidate disconnected")
	}

	if pending, _ := h.pool.HasPending(ctx, order.ID, "d1"); pending {
		t.Error("disconnected driver still holds a pending offer")
	}
}

func TestCancelDuringDispatchWithdrawsOffers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.newOrder(t, "cust-1")
	h.driverOnline(t, "d1", 1)

	dispatchErr := make(chan error, 1)
	go func() { dispatchErr <- h.dispatch.Dispatch(ctx, order) }()

	waitFor(t, 2*time.Second, func() bool {
		return h.notifier.driverGot("d1", websocketdto.OutOrderRequest)
	}, "offer to reach the driver")

	if _, err := h.orderSvc.Cancel(ctx, order.ID, "changed my mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	select {
	case err := <-dispatchErr:
		// the loop ends quietly, cancellation is not a no-drivers outcome
		if err != nil {
			t.Fatalf("dispatch err = %v after cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after the order was cancelled")
	}

	if !h.notifier.driverGot("d1", websocketdto.OutOrderCancelled) {
		t.Error("driver never heard the offer was withdrawn")
	}
	got, _ := h.orders.GetOrder(ctx, order.ID)
	if got.Status != model.OrderCancelled {
		t.Errorf("order status = %s, want CANCELLED", got.Status)
	}
}

func TestLateResolutionsLeaveNoActiveState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// closing orders with no dispatch loop behind them must not park
	// fan-out states in the service for good
	for _, cust := range []string{"cust-a", "cust-b", "cust-c"} {
		order := h.newOrder(t, cust)
		h.dispatch.OrderClosed(ctx, order.ID, "cancelled")
	}

	order := h.newOrder(t, "cust-d")
	h.driverOnline(t, "d1", 1)
	if _, err := h.dispatch.AcceptOffer(ctx, order.ID, "d1"); !errors.Is(err, myerrors.ErrNoPendingOffer) {
		t.Fatalf("accept err = %v, want ErrNoPendingOffer", err)
	}
	if err := h.dispatch.RejectOffer(ctx, order.ID, "d1", "busy"); !errors.Is(err, myerrors.ErrNoPendingOffer) {
		t.Fatalf("reject err = %v, want ErrNoPendingOffer", err)
	}

	if n := h.activeStates(); n != 0 {
		t.Fatalf("active fan-out states = %d, want 0", n)
	}
}
