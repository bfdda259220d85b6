package bm

import (
	"context"
	"encoding/json"

	"vtc-platform/internal/bm"
	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/wallet-service/core/domain/message_broker_dto"
	"vtc-platform/internal/wallet-service/core/domain/models"
	"vtc-platform/internal/wallet-service/core/services"
)

// BonusConsumer drains bonus-credit requests published by registration and
// funnels them into the one idempotent crediting path.
type BonusConsumer struct {
	ctx    context.Context
	log    mylogger.Logger
	broker *bm.RabbitMQ
	wallet *services.WalletService
}

func NewBonusConsumer(ctx context.Context, broker *bm.RabbitMQ, log mylogger.Logger, wallet *services.WalletService) *BonusConsumer {
	return &BonusConsumer{
		ctx:    ctx,
		log:    log,
		broker: broker,
		wallet: wallet,
	}
}

func (c *BonusConsumer) SubscribeForMessages() error {
	msgCh, err := c.broker.Consume(c.ctx, message_broker_dto.BonusQueueName,
		message_broker_dto.RoutingKeyBonusCredit, bm.ConsumeOptions{
			Prefetch:     1,
			AutoAck:      false,
			QueueDurable: true,
		})
	if err != nil {
		c.log.Action("consume").Error("failed to open bonus queue", err)
		return err
	}
	go func() {
		for msg := range msgCh {
			var ev message_broker_dto.BonusCreditEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				c.log.Action("consume").Error("failed to unmarshal bonus event", err)
				_ = msg.Ack(false)
				continue
			}

			owner, err := models.ParseUserRef(ev.UserType, ev.UserID)
			if err != nil {
				c.log.Action("consume").Error("bonus event with bad user ref", err)
				_ = msg.Ack(false)
				continue
			}

			if err := c.wallet.CreditBonus(c.ctx, owner, ev.Kind, ev.Amount, ev.Reference); err != nil {
				c.log.Action("consume").Error("bonus credit failed, requeueing", err,
					"reference", ev.Reference)
				_ = msg.Nack(false, true)
				continue
			}
			if err := msg.Ack(false); err != nil {
				c.log.Action("consume").Error("failed to acknowledge message", err)
			}
		}
	}()
	return nil
}
