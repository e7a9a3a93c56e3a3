// Package queue publishes visitor events to RabbitMQ so other systems
// (badge printers, building access, reporting) can follow the front desk.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"visitor-register-backend/internal/model"
)

const publishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards VisitorEvents to a durable queue. Notify never blocks;
// events are buffered and published by Run.
type Publisher struct {
	queue  string
	ch     channel
	conn   *amqp.Connection
	events chan model.VisitorEvent
}

// Dial connects to the broker at url and declares the queue.
func Dial(url, queue string, buffer int) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}
	p := newPublisher(ch, queue, buffer)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Publisher{
		queue:  queue,
		ch:     ch,
		events: make(chan model.VisitorEvent, buffer),
	}
}

// Notify queues ev for publishing, dropping it when the buffer is full.
func (p *Publisher) Notify(ev model.VisitorEvent) {
	select {
	case p.events <- ev:
	default:
		log.Printf("rabbitmq: buffer full, dropping %s event for %s", ev.Kind, ev.EntryID)
	}
}

// Run publishes buffered events until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil {
				log.Printf("rabbitmq: publish failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev model.VisitorEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         "visitor." + string(ev.Kind),
			MessageId:    ev.EntryID + ":" + string(ev.Kind),
			Body:         body,
		},
	)
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
