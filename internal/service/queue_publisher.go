// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/wave-plaza-bot/internal/queue"
)

// StatusPublisher publishes reservation status changes to one durable queue.
type StatusPublisher struct {
    URL   string
    Queue string
}

// NewStatusPublisher returns a publisher for queue at url.
func NewStatusPublisher(url, queue string) *StatusPublisher {
    if queue == "" {
        queue = q.DefaultStatusQueue
    }
    return &StatusPublisher{URL: url, Queue: queue}
}

// PublishStatusChanged publishes a ReservationStatusChangedEvent.  A fresh
// connection is dialled per call; status changes are rare admin actions.
// Any error is logged and returned so the caller can choose to ignore it.
// Messages are marked as persistent.
func (p *StatusPublisher) PublishStatusChanged(ctx context.Context, event q.ReservationStatusChangedEvent) error {
    conn, err := amqp.Dial(p.URL)
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

    // Same declaration as the consumer so either side may start first.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    log.Printf("rabbitmq: published %s for reservation %d", event.Status, event.ReservationID)
    return nil
}
