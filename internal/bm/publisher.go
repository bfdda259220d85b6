package bm

import (
	"context"

	"vtc-platform/internal/mylogger"
)

// Publisher adapts the broker to the narrow publish-only face the services
// use.
type Publisher struct {
	ctx    context.Context
	log    mylogger.Logger
	broker *RabbitMQ
}

func NewPublisher(ctx context.Context, broker *RabbitMQ, log mylogger.Logger) *Publisher {
	return &Publisher{
		ctx:    ctx,
		broker: broker,
		log:    log,
	}
}

func (p *Publisher) Publish(routingKey string, msg any) error {
	err := p.broker.PublishJSON(p.ctx, ExchangeName, routingKey, msg)
	if err != nil {
		p.log.Action("publish").Error("failed to publish message", err, "routing_key", routingKey)
		return err
	}
	p.log.Action("publish").Debug("message published", "routing_key", routingKey)
	return nil
}
