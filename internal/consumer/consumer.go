// internal/consumer/consumer.go
package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"tenantcore/internal/messaging"
	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
	"tenantcore/internal/scope"
	"tenantcore/internal/worker"
)

const consumerTag = "tenant-events-consumer"

// AuditStore persists audit rows. *storage.Storage satisfies it.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, e *model.AuditEvent) error
}

// Consumer drains the tenant-events queue into the worker pool.
type Consumer struct {
	channel *amqp.Channel
	pool    *worker.Pool
	log     *zap.SugaredLogger

	stopCh chan struct{}
	doneCh chan struct{}
}

// StartConsumer opens a dedicated channel on conn and starts dispatching
// tenant events to the pool.
func StartConsumer(conn *amqp.Connection, pool *worker.Pool, log *zap.SugaredLogger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	msgs, err := ch.Consume(
		messaging.EventQueue,
		consumerTag,
		false, // manual ack, handled by the pool
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	c := &Consumer{
		channel: ch,
		pool:    pool,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	pool.Start()
	go c.consumeLoop(msgs)

	log.Info("tenant-events consumer started")
	return c, nil
}

func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer close(c.doneCh)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn("delivery channel closed")
				return
			}
			c.pool.Submit(msg)

		case <-c.stopCh:
			_ = c.channel.Cancel(consumerTag, false)
			return
		}
	}
}

// Stop signals the consumer to stop, waits for the loop to exit, and drains
// the pool.
func (c *Consumer) Stop() {
	close(c.stopCh)
	<-c.doneCh
	c.pool.Stop()
	_ = c.channel.Close()
	c.log.Info("tenant-events consumer stopped")
}

// NewAuditHandler builds the pool handler that records each tenant event in
// the audit trail. The write runs under the event's own tenant scope, so row
// security applies to the audit table exactly as it does to request traffic.
// Events without a tenant (bootstrap registrations) are acked and skipped.
func NewAuditHandler(db *sql.DB, store AuditStore, log *zap.SugaredLogger) worker.HandlerFunc {
	return func(msg amqp.Delivery) error {
		var e model.Event
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			return fmt.Errorf("bad event payload: %w", err)
		}
		if e.TenantID == nil {
			return nil
		}

		entry := &model.AuditEvent{
			ID:        uuid.New(),
			TenantID:  *e.TenantID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			Payload:   json.RawMessage(msg.Body),
			CreatedAt: time.Now().UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := scope.WithTenantScope(ctx, db, e.TenantID, func(ctx context.Context) error {
			return store.InsertAuditEvent(ctx, entry)
		})
		if err != nil {
			return fmt.Errorf("record audit event: %w", err)
		}

		metrics.AuditProcessed.WithLabelValues(e.Action).Inc()
		log.Debugw("audit event recorded", "action", e.Action, "tenant", e.TenantID)
		return nil
	}
}
