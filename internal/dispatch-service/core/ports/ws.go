package ports

import websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"

// INotifier pushes events to connected sockets. Implementations must treat
// a missing connection as a no-op, not an error: offline parties catch up
// through the tracking log.
type INotifier interface {
	NotifyDriver(driverID string, e websocketdto.Event) error
	NotifyCustomer(customerID string, e websocketdto.Event) error
	IsDriverConnected(driverID string) bool
}
