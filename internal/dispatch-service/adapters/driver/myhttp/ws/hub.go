package ws

import (
	"sync"

	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/mylogger"

	"github.com/gorilla/websocket"
)

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub keeps the live driver and customer connections and implements the
// notifier port. Pushing to a party that is not connected is a no-op.
type Hub struct {
	log mylogger.Logger

	mu        sync.RWMutex
	drivers   map[string]*DriverClient
	customers map[string]*CustomerClient
}

var _ ports.INotifier = (*Hub)(nil)

func NewHub(log mylogger.Logger) *Hub {
	return &Hub{
		log:       log,
		drivers:   make(map[string]*DriverClient),
		customers: make(map[string]*CustomerClient),
	}
}

func (h *Hub) addDriver(c *DriverClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.drivers[c.driverID]; ok {
		existing.close()
	}
	h.drivers[c.driverID] = c
}

// removeDriver drops the client and reports whether it was still the one
// the hub mapped. A replaced client gets false and must not tear down the
// driver's live state.
func (h *Hub) removeDriver(c *DriverClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.drivers[c.driverID] == c {
		delete(h.drivers, c.driverID)
		return true
	}
	return false
}

func (h *Hub) addCustomer(c *CustomerClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.customers[c.customerID]; ok {
		existing.close()
	}
	h.customers[c.customerID] = c
}

func (h *Hub) removeCustomer(c *CustomerClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.customers[c.customerID] == c {
		delete(h.customers, c.customerID)
	}
}

func (h *Hub) NotifyDriver(driverID string, e websocketdto.Event) error {
	h.mu.RLock()
	c, ok := h.drivers[driverID]
	h.mu.RUnlock()

	if !ok {
		h.log.Action("NotifyDriver").Debug("driver not connected", "driver_id", driverID)
		return nil
	}
	c.send(e)
	return nil
}

func (h *Hub) NotifyCustomer(customerID string, e websocketdto.Event) error {
	h.mu.RLock()
	c, ok := h.customers[customerID]
	h.mu.RUnlock()

	if !ok {
		h.log.Action("NotifyCustomer").Debug("customer not connected", "customer_id", customerID)
		return nil
	}
	c.send(e)
	return nil
}

func (h *Hub) IsDriverConnected(driverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.drivers[driverID]
	return ok
}
