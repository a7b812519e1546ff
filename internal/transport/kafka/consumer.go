package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/service"
	"github.com/The-Hawkeye/go-ecommerce/pkg/kafka"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	outboxUtils "github.com/The-Hawkeye/go-ecommerce/pkg/outbox/utils"
)

// Consumer drives the payment event stream. Handled events pass through
// processed_events deduplication; redeliveries that slip past it are
// absorbed by the conditional status transitions inside the handlers.
type Consumer struct {
	pool     *pgxpool.Pool
	payments service.PaymentService
	groupID  string
	logger   *zap.Logger
}

func NewConsumer(pool *pgxpool.Pool, payments service.PaymentService, groupID string, logger *zap.Logger) *Consumer {
	return &Consumer{
		pool:     pool,
		payments: payments,
		groupID:  groupID,
		logger:   logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		c.groupID,
		[]string{"payment_events"},
		c.processMessage,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
	)

	type EventWrapper struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}

	var wrapper EventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err))
		return err
	}

	var envelope struct {
		EventID int64 `json:"event_id"`
	}
	if err := json.Unmarshal(wrapper.Payload, &envelope); err != nil {
		mylogger.Error(ctx, c.logger, "Failed to read event id", zap.Error(err))
		return err
	}

	switch wrapper.Event {
	case domain.EventPaymentSucceeded:
		var event domain.PaymentSucceededEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		err := c.withDedup(ctx, envelope.EventID, func(ctx context.Context) error {
			return c.payments.HandleSuccess(ctx, &event)
		})
		if err != nil {
			mylogger.Error(ctx, c.logger, "Failed to handle payment success", zap.Error(err))
			return err
		}
	case domain.EventPaymentFailed:
		var event domain.PaymentFailedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Failed to unmarshal payload", zap.Error(err))
			return err
		}

		err := c.withDedup(ctx, envelope.EventID, func(ctx context.Context) error {
			return c.payments.HandleFailure(ctx, &event)
		})
		if err != nil {
			mylogger.Error(ctx, c.logger, "Failed to handle payment failure", zap.Error(err))
			return err
		}
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", wrapper.Event))
	}

	return nil
}

// withDedup deduplicates on the event id when the payload carries one.
// Ids of zero or below would all collide on the same processed_events row,
// so those events skip the table and rely on the handlers' conditional
// transitions instead.
func (c *Consumer) withDedup(ctx context.Context, eventID int64, action func(context.Context) error) error {
	if eventID <= 0 {
		mylogger.Warn(
			ctx,
			c.logger,
			"Event has no usable id, processing without deduplication",
			zap.Int64("event_id", eventID),
		)

		return action(ctx)
	}

	return outboxUtils.ProcessWithDeduplication(ctx, c.pool, c.logger, eventID, action)
}
