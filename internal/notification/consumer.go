package notification

import (
	"context"
	"encoding/json"
	"strings"

	"vtc-platform/internal/bm"
	"vtc-platform/internal/mylogger"
)

// Consumer drains notification events from the broker and hands them to the
// configured delivery providers.
type Consumer struct {
	ctx      context.Context
	log      mylogger.Logger
	broker   *bm.RabbitMQ
	push     IPushSender
	sms      ISmsSender
	whatsapp IWhatsAppSender
}

func NewConsumer(ctx context.Context, broker *bm.RabbitMQ, log mylogger.Logger,
	push IPushSender, sms ISmsSender, whatsapp IWhatsAppSender,
) *Consumer {
	return &Consumer{
		ctx:      ctx,
		log:      log,
		broker:   broker,
		push:     push,
		sms:      sms,
		whatsapp: whatsapp,
	}
}

func (c *Consumer) SubscribeForMessages() error {
	msgCh, err := c.broker.Consume(c.ctx, QueueName, "notification.#", bm.ConsumeOptions{
		Prefetch:     10,
		AutoAck:      false,
		QueueDurable: true,
	})
	if err != nil {
		c.log.Action("consume").Error("failed to open notification queue", err)
		return err
	}
	go func() {
		for msg := range msgCh {
			var ev Event
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				c.log.Action("consume").Error("failed to unmarshal notification", err)
				_ = msg.Ack(false)
				continue
			}
			if err := c.deliver(msg.RoutingKey, ev); err != nil {
				c.log.Action("deliver").Error("provider delivery failed", err,
					"routing_key", msg.RoutingKey)
			}
			if err := msg.Ack(false); err != nil {
				c.log.Action("consume").Error("failed to acknowledge message", err)
			}
		}
	}()
	return nil
}

func (c *Consumer) deliver(routingKey string, ev Event) error {
	switch {
	case strings.HasPrefix(routingKey, RoutingKeyPush):
		return c.push.SendPush(c.ctx, ev.UserType, ev.UserID, ev.Title, ev.Body, ev.Data)
	case strings.HasPrefix(routingKey, RoutingKeySms):
		return c.sms.SendSms(c.ctx, ev.Phone, ev.Body)
	case strings.HasPrefix(routingKey, RoutingKeyWhatsApp):
		return c.whatsapp.SendWhatsApp(c.ctx, ev.Phone, ev.Body)
	default:
		c.log.Action("deliver").Warn("unknown notification routing key", "routing_key", routingKey)
		return nil
	}
}
