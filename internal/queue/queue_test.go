package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/unclebandit/bulksms-backend/internal/queue"
)

func TestInMemoryQueueDelivers(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)

	var got any
	q.Subscribe("topic", func(payload any) error {
		got = payload
		wg.Done()
		return nil
	})

	if err := q.Publish("topic", 42); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if got != 42 {
		t.Errorf("payload = %v", got)
	}
}

func TestInMemoryQueueNoSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue()
	if err := q.Publish("nobody-home", 1); err == nil {
		t.Error("expected an error when no subscriber exists")
	}
}

type recordingRunner struct {
	mu  sync.Mutex
	ids []int
	wg  *sync.WaitGroup
}

func (r *recordingRunner) Run(ctx context.Context, campaignID int) error {
	r.mu.Lock()
	r.ids = append(r.ids, campaignID)
	r.mu.Unlock()
	r.wg.Done()
	return nil
}

func TestDispatchSubscriberRunsCampaign(t *testing.T) {
	q := queue.NewInMemoryQueue()
	var wg sync.WaitGroup
	wg.Add(1)

	runner := &recordingRunner{wg: &wg}
	queue.StartDispatchSubscriber(q, runner)

	// subscriber registers on a goroutine
	deadline := time.Now().Add(time.Second)
	for {
		err := q.Publish(queue.DispatchQueue, queue.DispatchJob{CampaignID: 7})
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered:", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ids) != 1 || runner.ids[0] != 7 {
		t.Errorf("runner saw %v", runner.ids)
	}
}
