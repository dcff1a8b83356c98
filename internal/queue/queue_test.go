package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
}

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	for _, s := range []string{"early", "onTime"} {
		msg, err := NewMessage("attendance.recorded", payload{StudentID: "stu-1", Status: s})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	for _, want := range []string{"early", "onTime"} {
		select {
		case msg := <-ch:
			assert.Equal(t, "attendance.recorded", msg.Type)
			var p payload
			require.NoError(t, msg.Decode(&p))
			assert.Equal(t, want, p.Status)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageDecodeError(t *testing.T) {
	msg := Message{Type: "attendance.recorded", Body: []byte(`{"student_id":`)}
	var p payload
	assert.Error(t, msg.Decode(&p))
}

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueueRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q := NewRedisQueue(client, "")
	// Entries that are not envelopes are skipped by the consumer.
	require.NoError(t, client.LPush(ctx, "tagattend:events", "not json").Err())

	var sent []Message
	for _, s := range []string{"late", "early"} {
		msg, err := NewMessage("attendance.recorded", payload{StudentID: "stu-1", Status: s})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
		sent = append(sent, msg)
	}

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	for _, want := range sent {
		select {
		case got := <-ch:
			assert.Equal(t, want.Type, got.Type)
			assert.JSONEq(t, string(want.Body), string(got.Body))
		case <-ctx.Done():
			t.Fatal("message not delivered")
		}
	}

	cancel()
	for range ch {
	}
}
