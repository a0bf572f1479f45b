package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/openkanban/kanbd/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

// uniqueSubject returns a test subject under the "tasks." prefix, which the
// KANBD stream captures via tasks.>.
func uniqueSubject(t *testing.T) string {
	t.Helper()
	return "tasks.test." + t.Name()
}

func TestQueuePublishSubscribe(t *testing.T) {
	q := testConnect(t)
	subject := uniqueSubject(t)

	type payload struct {
		TaskID string `json:"task_id"`
	}
	want := payload{TaskID: "t-123"}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var mu sync.Mutex
	var got []payload
	done := make(chan struct{})

	cancel, err := q.Subscribe(context.Background(), subject, func(_ context.Context, _ string, data []byte) error {
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, p)
		if len(got) == 1 {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if err := q.Publish(context.Background(), subject, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].TaskID != "t-123" {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestQueueIsConnected(t *testing.T) {
	q := testConnect(t)
	if !q.IsConnected() {
		t.Fatal("expected connected queue")
	}
}

var _ messagequeue.Queue = (*Queue)(nil)
