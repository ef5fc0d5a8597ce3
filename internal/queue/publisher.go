package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AuditQueueName is the durable queue auth events are routed to.
const AuditQueueName = "auth.events"

// Publisher sends auth events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
}

// NoopPublisher drops every event. It is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AuthEvent) error { return nil }

// AMQPPublisher publishes events to RabbitMQ. It opens a connection per
// publish, which is fine for the low volume of auth events and keeps no
// broker state in the request path.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
	Log         zerolog.Logger
}

func NewAMQPPublisher(url string, log zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, DialTimeout: 3 * time.Second, Log: log}
}

// Publish sends ev to the auth.events queue as a persistent JSON message.
// Errors are logged and returned so callers can ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.DialTimeout)})
	if err != nil {
		p.Log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		AuditQueueName, // name
		true,           // durable
		false,          // autoDelete
		false,          // exclusive
		false,          // noWait
		nil,            // args
	); err != nil {
		p.Log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		AuditQueueName, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		pub,
	); err != nil {
		p.Log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
