// Package service holds the outbound adapters of the booking manager: the
// RabbitMQ publisher for reservation events and reconciliation tasks, and
// the fan-out that also feeds in-process listeners.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/queue"
)

// Publisher publishes to durable RabbitMQ queues. Every call dials, declares
// the queue and publishes one persistent message; errors are logged and
// returned so the caller can decide to ignore them.
type Publisher struct {
	url string
	now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, now: time.Now}
}

// ReservationCreated publishes a reservation.created event.
func (p *Publisher) ReservationCreated(ctx context.Context, r *model.Reservation) error {
	return p.Publish(ctx, queue.ReservationEventsQueue, queue.NewReservationEvent(queue.EventReservationCreated, r, p.now()))
}

// ReservationCanceled publishes a reservation.canceled event.
func (p *Publisher) ReservationCanceled(ctx context.Context, r *model.Reservation) error {
	return p.Publish(ctx, queue.ReservationEventsQueue, queue.NewReservationEvent(queue.EventReservationCanceled, r, p.now()))
}

// ReconciliationTask queues a follow-up on booking.reconcile.
func (p *Publisher) ReconciliationTask(ctx context.Context, t queue.ReconciliationTask) error {
	return p.Publish(ctx, queue.ReconcileQueue, t)
}

// Publish marshals v and sends it to queueName through the default exchange.
func (p *Publisher) Publish(ctx context.Context, queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("rabbitmq: marshal %s message failed: %v", queueName, err)
		return err
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

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare %s failed: %v", queueName, err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}
