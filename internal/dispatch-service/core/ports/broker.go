package ports

// IEventPublisher is the narrow publishing face of the broker used by the
// services.
type IEventPublisher interface {
	Publish(routingKey string, msg any) error
}
