package ws

import (
	"context"
	"net/http"
	"time"

	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/mylogger"

	"github.com/gorilla/websocket"
)

// SessionValidator checks that a session token belongs to the user. The
// redis session store satisfies it.
type SessionValidator interface {
	Validate(ctx context.Context, token, userID string) error
}

// CustomerClient is a push-only connection: the customer receives order
// and trip events plus driver positions, and sends nothing meaningful.
type CustomerClient struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn       *websocket.Conn
	hub        *Hub
	log        mylogger.Logger
	customerID string
	egress     chan websocketdto.Event
}

// CustomerHandler upgrades ws/customer/{customer_id}/?token=... after
// validating the session token against the path's customer id. A bad
// token is the one failure that closes instead of reporting.
func CustomerHandler(parent context.Context, hub *Hub, log mylogger.Logger, sessions SessionValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := log.Action("CustomerHandler")
		customerID := r.PathValue("customer_id")
		token := r.URL.Query().Get("token")
		if customerID == "" || token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := sessions.Validate(r.Context(), token, customerID); err != nil {
			l.Warn("session validation failed", "customer_id", customerID)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Error("cannot upgrade", err)
			return
		}

		ctx, cancel := context.WithCancel(parent)
		c := &CustomerClient{
			ctx:        ctx,
			cancel:     cancel,
			conn:       conn,
			hub:        hub,
			log:        log.With("customer_id", customerID),
			customerID: customerID,
			egress:     make(chan websocketdto.Event, egressBuffer),
		}

		hub.addCustomer(c)
		go c.readPump()
		go c.writePump()
	}
}

func (c *CustomerClient) send(e websocketdto.Event) {
	select {
	case c.egress <- e:
	default:
		c.log.Action("send").Warn("egress full, dropping event", "type", e.Type)
	}
}

func (c *CustomerClient) close() {
	c.cancel()
	c.conn.Close()
}

// readPump only drains the connection so pings and closes are processed.
func (c *CustomerClient) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
		c.hub.removeCustomer(c)
		c.log.Action("readPump").Info("customer disconnected")
	}()
	c.conn.SetReadLimit(readLimit)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *CustomerClient) writePump() {
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
