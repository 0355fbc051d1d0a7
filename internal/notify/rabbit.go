package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueName is the durable queue all notification events land on.  A
// single queue keeps ordering per member irrelevant and lets one worker
// render every template.
const QueueName = "notify.email"

// Publisher sends notification events to RabbitMQ.  Each publish dials
// a fresh connection; notification volume is a handful of messages per
// booking, so connection reuse buys nothing and a dead broker can never
// wedge a long-lived channel.  Errors are logged and returned so the
// caller can ignore them without losing visibility.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given AMQP URL.  The URL is
// fixed at startup; nothing re-reads the environment per call.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

func (p *Publisher) AdminNewBooking(ctx context.Context, ev Event) error {
	ev.Kind = KindAdminNewBooking
	return p.publish(ctx, ev)
}

func (p *Publisher) MemberConfirmation(ctx context.Context, ev Event) error {
	ev.Kind = KindMemberConfirmation
	return p.publish(ctx, ev)
}

func (p *Publisher) ZeroCredits(ctx context.Context, ev Event) error {
	ev.Kind = KindZeroCredits
	return p.publish(ctx, ev)
}

func (p *Publisher) Reschedule(ctx context.Context, ev Event) error {
	ev.Kind = KindReschedule
	return p.publish(ctx, ev)
}

func (p *Publisher) Cancellation(ctx context.Context, ev Event) error {
	ev.Kind = KindCancellation
	return p.publish(ctx, ev)
}

func (p *Publisher) MemberInvite(ctx context.Context, ev Event) error {
	ev.Kind = KindMemberInvite
	return p.publish(ctx, ev)
}

// publish declares the durable queue (idempotent) and sends one
// persistent JSON message.  It never panics; any failure is logged and
// handed back to the caller.
func (p *Publisher) publish(ctx context.Context, ev Event) error {
	if ev.SentAt == "" {
		ev.SentAt = time.Now().UTC().Format(time.RFC3339)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
