package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LogDir is where consumers append their line logs.
var LogDir = "logs"

// StartEventLogConsumer consumes reservation.events and appends one line
// per event to logs/booking.log. It reconnects with backoff until ctx is
// canceled.
func StartEventLogConsumer(ctx context.Context, url string) {
	run(ctx, url, ReservationEventsQueue, "event-consumer", func(_ context.Context, body []byte) error {
		return handleEvent(body)
	})
}

// StartReconcileConsumer consumes booking.reconcile and appends every
// payment_refund task to logs/reconcile.log for an operator.
func StartReconcileConsumer(ctx context.Context, url string) {
	run(ctx, url, ReconcileQueue, "reconcile-consumer", func(_ context.Context, body []byte) error {
		return handleTask(body)
	})
}

func run(ctx context.Context, url, queueName, name string, handle func(context.Context, []byte) error) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("%s: failed to dial broker: %v; retrying in %s", name, err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, name, handle)
		_ = conn.Close()
		if err == nil {
			return
		}
		log.Printf("%s: consume loop ended: %v; reconnecting", name, err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// consumeLoop returns nil only when ctx is canceled.
func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName, name string, handle func(context.Context, []byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s: set QoS failed: %v", name, err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				log.Printf("%s: handle message failed: %v", name, err)
				_ = d.Nack(false, false) // no requeue, avoids tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleEvent(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | class_id=%d | slot_id=%d | status=%s | price=%d | coupon=%d | points=%d | paid=%d | order_id=%s\n",
		ev.OccurredAt, ev.Type, ev.ReservationID, ev.UserID, ev.ClassID, ev.SlotID, ev.Status,
		ev.PricePoints, ev.CouponDiscountPoints, ev.PointsUsed, ev.PaidPoints, ev.OrderID)
	return appendLine("booking.log", line)
}

func handleTask(body []byte) error {
	var t ReconciliationTask
	if err := json.Unmarshal(body, &t); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if t.Kind != TaskPaymentRefund {
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	line := fmt.Sprintf("[%s] %s | task_id=%s | status=pending | user_id=%d | order_id=%s | payment_ref=%s | amount=%d | reason=%q\n",
		t.CreatedAt, t.Kind, t.TaskID, t.UserID, t.OrderID, t.PaymentRef, t.Amount, t.Reason)
	return appendLine("reconcile.log", line)
}

func appendLine(file, line string) error {
	if err := os.MkdirAll(LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(LogDir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
