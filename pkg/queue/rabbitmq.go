package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sublet-market/pkg/config"
	"sublet-market/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ModerationQueueName = "moderation_queue"
	ListingsExchange    = "listings"
	SubmittedRoutingKey = "listing_submitted"
)

// ModerationTask asks the moderation workflow to review a freshly submitted listing.
type ModerationTask struct {
	ListingID  string    `json:"listing_id"`
	OwnerID    string    `json:"owner_id"`
	PhotoCount int       `json:"photo_count"`
	CoverURL   string    `json:"cover_url"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ListingsExchange, // name
		"direct",         // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ModerationQueueName, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		amqp.Table{
			"x-max-priority": 10,
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		ModerationQueueName, // queue name
		SubmittedRoutingKey, // routing key
		ListingsExchange,    // exchange
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishModerationTask enqueues a review request for a submitted listing.
func (c *Client) PublishModerationTask(ctx context.Context, task ModerationTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(
		ctx,
		ListingsExchange,    // exchange
		SubmittedRoutingKey, // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     clampPriority(task.Priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish to exchange=%s, routing_key=%s: %v", ListingsExchange, SubmittedRoutingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Published moderation task listing_id=%s photos=%d", task.ListingID, task.PhotoCount)
	return nil
}

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return uint8(p)
}
