// internal/messaging/rabbit.go
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"tenantcore/internal/metrics"
	"tenantcore/internal/model"
)

const (
	EventQueue = "tenant-events"
	eventDLQ   = "tenant-events-dlq"
)

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
}

func NewRabbitClient(url string) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeclareEventQueue creates the durable tenant-events queue with its DLQ.
func (r *RabbitClient) DeclareEventQueue() error {
	_, err := r.channel.QueueDeclare(
		eventDLQ,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": eventDLQ,
	}
	_, err = r.channel.QueueDeclare(
		EventQueue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare event queue: %w", err)
	}
	return nil
}

// PublishEvent sends an administrative event to the tenant-events queue.
func (r *RabbitClient) PublishEvent(e model.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = r.channel.Publish(
		"",         // default exchange
		EventQueue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

// UpdateQueueDepth refreshes the queue depth gauge.
func (r *RabbitClient) UpdateQueueDepth() error {
	q, err := r.channel.QueueInspect(EventQueue)
	if err != nil {
		return fmt.Errorf("inspect queue: %w", err)
	}
	metrics.QueueDepth.Set(float64(q.Messages))
	return nil
}
