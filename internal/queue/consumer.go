package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/wave-plaza-bot/internal/model"
)

// StatusHandler receives one decoded status change.
type StatusHandler func(ctx context.Context, userID int64, status model.ReservationStatus)

// StatusConsumer subscribes to the reservation status queue.
type StatusConsumer struct {
    URL      string
    Queue    string
    Prefetch int
}

// NewStatusConsumer returns a consumer for queue at url.
func NewStatusConsumer(url, queue string) *StatusConsumer {
    if queue == "" {
        queue = DefaultStatusQueue
    }
    return &StatusConsumer{URL: url, Queue: queue, Prefetch: 50}
}

// Subscribe connects to RabbitMQ, declares the durable status queue and
// feeds every delivery to handler until ctx is cancelled.  Broken
// connections are re-dialled with exponential backoff, so the only error
// it returns is ctx's.
func (c *StatusConsumer) Subscribe(ctx context.Context, handler StatusHandler) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Printf("status-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn, handler)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("status-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *StatusConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection, handler StatusHandler) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.Prefetch, 0, false); err != nil {
        log.Printf("status-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    log.Printf("status-consumer: consuming %s", c.Queue)

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleDelivery(ctx, d.Body, handler); err != nil {
                log.Printf("status-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handleDelivery decodes one message body and hands it to handler.
// Undecodable bodies are errors; unknown statuses are passed through so
// the handler decides what to ignore.
func handleDelivery(ctx context.Context, body []byte, handler StatusHandler) error {
    var ev ReservationStatusChangedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.UserID == 0 {
        return fmt.Errorf("reservation %d: missing user_id", ev.ReservationID)
    }
    status, _ := model.ParseStatus(ev.Status)
    handler(ctx, ev.UserID, status)
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-ctx.Done():
        return false
    }
}
