package notification

// Routing keys under the shared topic exchange.
const (
	RoutingKeyPush     = "notification.push"
	RoutingKeySms      = "notification.sms"
	RoutingKeyWhatsApp = "notification.whatsapp"

	QueueName = "notification_queue"
)

// Event is the broker payload for every outbound notification. Channel
// selection happens through the routing key, the body is shared.
type Event struct {
	UserType string            `json:"user_type,omitempty"` // DRIVER | CUSTOMER
	UserID   string            `json:"user_id,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
}
