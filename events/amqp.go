package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// AMQPSender publishes events to a durable topic exchange.
type AMQPSender struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	log          *slog.Logger
}

func NewAMQPSender(url, exchangeName string, log *slog.Logger) (*AMQPSender, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	s := &AMQPSender{conn: conn, channel: channel, exchangeName: exchangeName, log: log}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return s, nil
}

func (s *AMQPSender) Send(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := s.channel.PublishWithContext(
		ctx,
		s.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		publishing(body, time.Now()),
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	s.log.DebugContext(ctx, "published event", "routing_key", routingKey, "exchange", s.exchangeName)
	return nil
}

func (s *AMQPSender) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func publishing(body []byte, at time.Time) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    at,
		Body:         body,
	}
}
