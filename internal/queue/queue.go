package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// DispatchQueue is the queue name campaign dispatch triggers travel on.
const DispatchQueue = "campaign_dispatch"

// DispatchJob is the payload: just the campaign to run. The runner's
// lock and the outcome unique index make at-least-once delivery safe.
type DispatchJob struct {
	CampaignID int `json:"campaign_id"`
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// ---------------------- AMQP ----------------------

// AmqpQueue publishes dispatch jobs to RabbitMQ. Consumption happens
// in cmd/worker with its own channel settings, so Subscribe here is
// only used by the in-process fallback.
type AmqpQueue struct {
	ch *amqp.Channel
}

func NewAmqpQueue(conn *amqp.Connection) (*AmqpQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(DispatchQueue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AmqpQueue{ch: ch}, nil
}

func (q *AmqpQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (q *AmqpQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("amqp consumption runs in cmd/worker, not via Subscribe")
}

// ---------------------- in-memory ----------------------

// InMemoryQueue delivers jobs to in-process subscribers with retry.
// Used when no AMQP_URL is configured and by tests.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// DispatchRunner is what a subscriber needs to execute a campaign run.
type DispatchRunner interface {
	Run(ctx context.Context, campaignID int) error
}

// StartDispatchSubscriber wires an in-process runner to the dispatch
// topic, for deployments without a broker.
func StartDispatchSubscriber(q Queue, runner DispatchRunner) {
	go func() {
		err := q.Subscribe(DispatchQueue, func(payload any) error {
			job, ok := payload.(DispatchJob)
			if !ok {
				log.Println("⚠️ Invalid payload type, expected DispatchJob")
				return nil
			}

			log.Println("📩 Processing dispatch trigger for campaign ID:", job.CampaignID)
			return runner.Run(context.Background(), job.CampaignID)
		})

		if err != nil {
			log.Println("⚠️ Failed to start subscriber for", DispatchQueue, ":", err)
		}
	}()
}

var _ Queue = (*AmqpQueue)(nil)
var _ Queue = (*InMemoryQueue)(nil)
