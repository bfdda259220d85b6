package messagebrokerdto

// OrderStatusEvent goes out on the vtc_topic exchange with routing key
// order.status.<status> whenever an order changes state. The notification
// consumer turns these into push messages.
type OrderStatusEvent struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	CustomerID  string `json:"customer_id"`
	DriverID    string `json:"driver_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Timestamp   string `json:"timestamp"`
}
