package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lysyi3m/newsbell/app/feed"
)

type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string // optional; declared and bound when set
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes notifications to a RabbitMQ exchange so other
// desktop components can render them.
type AMQPDispatcher struct {
	conn       *amqp.Connection
	channel    publisher
	exchange   string
	routingKey string
}

func NewAMQPDispatcher(cfg AMQPConfig) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if cfg.QueueName != "" {
		q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue: %w", err)
		}
	}

	slog.Info("Connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey)

	return &AMQPDispatcher{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

func (a *AMQPDispatcher) Notify(ctx context.Context, item feed.NewsItem) error {
	body, err := json.Marshal(NewMessage(item))
	if err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("marshal message: %w", err)}
	}

	err = a.channel.PublishWithContext(
		ctx,
		a.exchange,
		a.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    item.ID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("publish message: %w", err)}
	}

	slog.Debug("Published notification", "id", item.ID, "exchange", a.exchange)

	return nil
}

func (a *AMQPDispatcher) Close() error {
	if ch, ok := a.channel.(*amqp.Channel); ok && ch != nil {
		ch.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
