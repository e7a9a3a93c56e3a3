package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the JSON payload delivered to the front-desk browser.
type Message struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	EntryID string `json:"entry_id"`
	Kind    string `json:"kind"`
}

// NewMessage renders ev for display.
func NewMessage(ev model.VisitorEvent) Message {
	msg := Message{EntryID: ev.EntryID, Kind: string(ev.Kind)}
	switch ev.Kind {
	case model.StatusExited:
		msg.Title = "Tamu keluar"
		msg.Body = fmt.Sprintf("%s (%s) sudah keluar", ev.Name, ev.Number)
	default:
		msg.Title = "Tamu masuk"
		msg.Body = fmt.Sprintf("%s (%s) sudah terdaftar", ev.Name, ev.Number)
		if ev.WhomToMeet != "" {
			msg.Body = fmt.Sprintf("%s (%s) ingin bertemu %s", ev.Name, ev.Number, ev.WhomToMeet)
		}
	}
	return msg
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan model.VisitorEvent
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool. Events beyond queueSize pending
// jobs are dropped.
func NewWorkerPool(size, queueSize int, subs store.SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.VisitorEvent, queueSize),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			log.Printf("Worker %d processing %s event for %s", id, ev.Kind, ev.EntryID)
			wp.sendNotificationsForEvent(ctx, ev)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event without blocking. It reports false when the
// queue is full and the event was dropped.
func (wp *WorkerPool) Dispatch(ev model.VisitorEvent) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		log.Printf("Notification queue full, dropping %s event for %s", ev.Kind, ev.EntryID)
		return false
	}
}

// Notify lets the pool receive lifecycle events directly.
func (wp *WorkerPool) Notify(ev model.VisitorEvent) {
	wp.Dispatch(ev)
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.VisitorEvent {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, ev model.VisitorEvent) {
	subscriptions, err := wp.subs.SubscriptionsFor(ctx, ev.Kind)
	if err != nil {
		log.Printf("Error fetching subscriptions for %s events: %v", ev.Kind, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(NewMessage(ev))
	if err != nil {
		log.Printf("Error encoding notification for %s: %v", ev.EntryID, err)
		return
	}

	log.Printf("Sending %d notifications for entry %s", len(subscriptions), ev.EntryID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if _, err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
