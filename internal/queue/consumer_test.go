package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenSet_Dedupes(t *testing.T) {
	s := newSeenSet(10)
	assert.True(t, s.add("a"))
	assert.False(t, s.add("a"))
	assert.True(t, s.add("b"))
	assert.False(t, s.add("b"))
}

func TestSeenSet_EvictsOldest(t *testing.T) {
	s := newSeenSet(2)
	assert.True(t, s.add("a"))
	assert.True(t, s.add("b"))
	assert.True(t, s.add("c")) // evicts a
	assert.True(t, s.add("a"))
	assert.False(t, s.add("c"))
}

func envelopeBytes(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(Envelope{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return body
}

func readEventLog(t *testing.T) []string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("logs", "events.log"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}

func TestHandleMessage_ExpiredDedupedByReservationID(t *testing.T) {
	t.Chdir(t.TempDir())
	dedupe := newSeenSet(16)

	body := envelopeBytes(t, "reservation.expired", ReservationExpiredEvent{
		ReservationID: 7,
		GroupID:       "g-1",
		SessionID:     1,
		SeatID:        101,
		RequesterID:   "alice",
	})

	require.NoError(t, handleMessage(QueueReservationExpired, body, dedupe))
	// Redelivery of the same reservation is swallowed.
	require.NoError(t, handleMessage(QueueReservationExpired, body, dedupe))

	lines := readEventLog(t)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "reservation_id=7")
}

func TestHandleMessage_CreatedAndConfirmed(t *testing.T) {
	t.Chdir(t.TempDir())
	dedupe := newSeenSet(16)

	created := envelopeBytes(t, "reservation.created", ReservationCreatedEvent{
		ReservationIDs: []uint64{1, 2},
		GroupID:        "g-9",
		SessionID:      3,
		RequesterID:    "bob",
		SeatIDs:        []uint64{301, 302},
	})
	confirmed := envelopeBytes(t, "payment.confirmed", PaymentConfirmedEvent{
		SaleIDs:        []uint64{11, 12},
		ReservationIDs: []uint64{1, 2},
		GroupID:        "g-9",
		SessionID:      3,
		RequesterID:    "bob",
		TotalCents:     3000,
	})

	require.NoError(t, handleMessage(QueueReservationCreated, created, dedupe))
	require.NoError(t, handleMessage(QueuePaymentConfirmed, confirmed, dedupe))

	lines := readEventLog(t)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "group=g-9")
	assert.Contains(t, lines[1], "total=3000 cents")
}

func TestHandleMessage_BadEnvelope(t *testing.T) {
	err := handleMessage(QueueReservationCreated, []byte("not json"), newSeenSet(4))
	assert.Error(t, err)
}

func TestHandleMessage_UnknownQueue(t *testing.T) {
	body := envelopeBytes(t, "whatever", map[string]string{})
	err := handleMessage("some.other.queue", body, newSeenSet(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown queue")
}

func TestForward_DeliversInOrder(t *testing.T) {
	msgs := make(chan amqp.Delivery, 2)
	out := make(chan amqp.Delivery)
	done := make(chan struct{})

	msgs <- amqp.Delivery{RoutingKey: "a"}
	msgs <- amqp.Delivery{RoutingKey: "b"}
	close(msgs)

	go forward(msgs, out, done)

	assert.Equal(t, "a", (<-out).RoutingKey)
	assert.Equal(t, "b", (<-out).RoutingKey)
}

func TestForward_ReturnsWhenLoopDone(t *testing.T) {
	msgs := make(chan amqp.Delivery, 1)
	out := make(chan amqp.Delivery) // no reader: the send can never complete
	done := make(chan struct{})

	msgs <- amqp.Delivery{RoutingKey: "stuck"}

	returned := make(chan struct{})
	go func() {
		forward(msgs, out, done)
		close(returned)
	}()

	close(done)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("forward did not return after done closed")
	}
}

func TestSeenSet_Capacity(t *testing.T) {
	s := newSeenSet(3)
	for i := 0; i < 100; i++ {
		s.add(fmt.Sprintf("k%d", i))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.order, 3)
	assert.Len(t, s.keys, 3)
}
