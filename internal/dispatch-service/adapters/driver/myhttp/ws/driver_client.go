package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/dispatch-service/core/services"
	"vtc-platform/internal/mylogger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readLimit     = 4096
	egressBuffer  = 16
	writeDeadline = 10 * time.Second
)

// DriverClient is one driver's realtime connection. It owns a periodic
// position-broadcast task which is cancelled together with the connection.
type DriverClient struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn      *websocket.Conn
	hub       *Hub
	log       mylogger.Logger
	driverID  string
	channelID string
	egress    chan websocketdto.Event

	status   *services.StatusService
	dispatch *services.DispatchService
	orders   *services.OrderService

	broadcastPeriod time.Duration
}

// DriverHandler upgrades ws/driver/{driver_id}/ connections. The driver
// must exist; everything after the upgrade is best-effort per message.
func DriverHandler(
	parent context.Context,
	hub *Hub,
	log mylogger.Logger,
	drivers ports.IDriverInfoRepo,
	status *services.StatusService,
	dispatch *services.DispatchService,
	orders *services.OrderService,
	broadcastPeriod time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := log.Action("DriverHandler")
		driverID := r.PathValue("driver_id")
		if driverID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ok, err := drivers.Exists(r.Context(), driverID)
		if err != nil {
			l.Error("cannot check driver", err, "driver_id", driverID)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Error("cannot upgrade", err)
			return
		}

		ctx, cancel := context.WithCancel(parent)
		c := &DriverClient{
			ctx:             ctx,
			cancel:          cancel,
			conn:            conn,
			hub:             hub,
			log:             log.With("driver_id", driverID),
			driverID:        driverID,
			channelID:       uuid.NewString(),
			egress:          make(chan websocketdto.Event, egressBuffer),
			status:          status,
			dispatch:        dispatch,
			orders:          orders,
			broadcastPeriod: broadcastPeriod,
		}

		if err := status.SetOnline(ctx, driverID, c.channelID, "", nil, nil); err != nil {
			l.Error("cannot set driver online", err, "driver_id", driverID)
			conn.Close()
			cancel()
			return
		}

		hub.addDriver(c)
		c.send(websocketdto.Marshal(websocketdto.OutStatusUpdate, websocketdto.StatusUpdate{
			Status:  "ONLINE",
			Message: "Connected",
		}))

		go c.readPump()
		go c.writePump()
		go c.broadcastLoop()
	}
}

func (c *DriverClient) send(e websocketdto.Event) {
	select {
	case c.egress <- e:
	default:
		c.log.Action("send").Warn("egress full, dropping event", "type", e.Type)
	}
}

func (c *DriverClient) close() {
	c.cancel()
	c.conn.Close()
}

// readPump handles the inbound driver contract. Internal failures are
// reported back over the socket, only a read error ends the connection.
func (c *DriverClient) readPump() {
	defer c.disconnect()
	c.conn.SetReadLimit(readLimit)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Action("readPump").Warn("unexpected close", "err", err.Error())
			}
			return
		}

		var e websocketdto.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			c.sendError("malformed message")
			continue
		}
		if err := c.handle(e); err != nil {
			c.log.Action("readPump").Warn("message handling failed", "type", e.Type, "err", err.Error())
			c.sendError(err.Error())
		}
	}
}

func (c *DriverClient) handle(e websocketdto.Event) error {
	switch e.Type {
	case websocketdto.InLocationUpdate:
		var m websocketdto.LocationUpdate
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return err
		}
		return c.status.UpdatePosition(c.ctx, c.driverID, m.Latitude, m.Longitude)

	case websocketdto.InAcceptOrder:
		var m websocketdto.AcceptOrder
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return err
		}
		_, err := c.dispatch.AcceptOffer(c.ctx, m.OrderID, c.driverID)
		if errors.Is(err, myerrors.ErrOrderTaken) || errors.Is(err, myerrors.ErrNoPendingOffer) {
			c.send(websocketdto.Marshal(websocketdto.OutAcceptanceFailed, websocketdto.AcceptanceFailed{
				OrderID: m.OrderID,
				Message: err.Error(),
			}))
			return nil
		}
		return err

	case websocketdto.InRejectOrder:
		var m websocketdto.RejectOrder
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return err
		}
		err := c.dispatch.RejectOffer(c.ctx, m.OrderID, c.driverID, m.Reason)
		if errors.Is(err, myerrors.ErrNoPendingOffer) {
			return nil
		}
		return err

	case websocketdto.InStartTrip:
		var m websocketdto.TripAction
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return err
		}
		return c.orders.StartTrip(c.ctx, m.OrderID, c.driverID)

	case websocketdto.InCompleteTrip:
		var m websocketdto.TripAction
		if err := json.Unmarshal(e.Data, &m); err != nil {
			return err
		}
		return c.orders.CompleteTrip(c.ctx, m.OrderID, c.driverID)

	default:
		return errors.New("unknown message type: " + e.Type)
	}
}

func (c *DriverClient) writePump() {
	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close()
			return
		case e, ok := <-c.egress:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteJSON(e); err != nil {
				c.log.Action("writePump").Warn("write failed", "err", err.Error())
				return
			}
		}
	}
}

// broadcastLoop pushes the driver's last known position to the customer
// of the driver's active order every tick.
func (c *DriverClient) broadcastLoop() {
	t := time.NewTicker(c.broadcastPeriod)
	defer t.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			if err := c.orders.BroadcastDriverPosition(c.ctx, c.driverID); err != nil {
				c.log.Action("broadcastLoop").Warn("broadcast failed", "err", err.Error())
			}
		}
	}
}

func (c *DriverClient) sendError(msg string) {
	c.send(websocketdto.Marshal(websocketdto.OutError, websocketdto.ErrorMessage{Message: msg}))
}

// disconnect cancels the broadcast loop, releases the status row and
// withdraws any offers still pending for this driver. A client replaced
// by a reconnect skips the teardown: the newer connection owns the
// driver's live state now.
func (c *DriverClient) disconnect() {
	c.cancel()
	c.conn.Close()

	if !c.hub.removeDriver(c) {
		c.log.Action("disconnect").Info("connection superseded, keeping driver online")
		return
	}

	// detached context: the connection's own context is already done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.dispatch.DriverDisconnected(ctx, c.driverID)
	if err := c.status.SetOffline(ctx, c.driverID); err != nil {
		c.log.Action("disconnect").Error("cannot set driver offline", err)
	}
	c.log.Action("disconnect").Info("driver disconnected")
}
