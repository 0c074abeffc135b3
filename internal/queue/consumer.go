package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/logger"
)

// StartConsumer connects to RabbitMQ and consumes the reservation and
// payment queues, appending one line per event to logs/events.log.
// Delivery is at-least-once, so redelivered reservation events are
// deduplicated by reservation id before logging.  The function runs a
// reconnect loop with exponential backoff and never returns under
// normal operation; processing errors reject the offending message so
// the server keeps running.
func StartConsumer(url string) error {
	dedupe := newSeenSet(4096)
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, dedupe); err != nil {
			logger.Warn("event consumer: consume loop ended", zap.Error(err))
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, dedupe *seenSet) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("event consumer: set QoS failed", zap.Error(err))
	}

	queues := []string{QueueReservationCreated, QueueReservationExpired, QueuePaymentConfirmed}
	deliveries := make(chan amqp.Delivery)
	loopDone := make(chan struct{})
	defer close(loopDone)
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go forward(msgs, deliveries, loopDone)
	}

	closed := make(chan *amqp.Error, 1)
	conn.NotifyClose(closed)
	for {
		select {
		case d := <-deliveries:
			if err := handleMessage(d.RoutingKey, d.Body, dedupe); err != nil {
				logger.Warn("event consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("connection closed: %w", err)
			}
			return errors.New("connection closed")
		}
	}
}

// forward pumps one queue's deliveries into the shared channel until
// the consume loop signals done.  The done check matters: when the
// loop exits through a connection close, a forwarder mid-send would
// otherwise block forever and leak, one goroutine per queue per
// reconnect.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
	for d := range msgs {
		select {
		case out <- d:
		case <-done:
			return
		}
	}
}

func handleMessage(queue string, body []byte, dedupe *seenSet) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	var line string
	switch queue {
	case QueueReservationCreated:
		var ev ReservationCreatedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal created: %w", err)
		}
		if !dedupe.add(queue + ":" + ev.GroupID) {
			return nil // redelivery
		}
		line = fmt.Sprintf("[%s] Reservation created | group=%s | session=%d | requester=%s | seats=%d | expires_at=%s\n",
			env.Timestamp, ev.GroupID, ev.SessionID, ev.RequesterID, len(ev.SeatIDs), ev.ExpiresAt)
	case QueueReservationExpired:
		var ev ReservationExpiredEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal expired: %w", err)
		}
		if !dedupe.add(fmt.Sprintf("%s:%d", queue, ev.ReservationID)) {
			return nil
		}
		line = fmt.Sprintf("[%s] Reservation expired | reservation_id=%d | session=%d | seat=%d | requester=%s\n",
			env.Timestamp, ev.ReservationID, ev.SessionID, ev.SeatID, ev.RequesterID)
	case QueuePaymentConfirmed:
		var ev PaymentConfirmedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal confirmed: %w", err)
		}
		if !dedupe.add(queue + ":" + ev.GroupID) {
			return nil
		}
		line = fmt.Sprintf("[%s] Payment confirmed | group=%s | session=%d | requester=%s | seats=%d | total=%d cents\n",
			env.Timestamp, ev.GroupID, ev.SessionID, ev.RequesterID, len(ev.SaleIDs), ev.TotalCents)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}

	return appendEventLog(line)
}

func appendEventLog(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "events.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// seenSet is a fixed-capacity set of recently seen event keys.  When
// full, the oldest entries are dropped, which is fine: redeliveries
// arrive close to the original, not thousands of events later.
type seenSet struct {
	mu    sync.Mutex
	keys  map[string]struct{}
	order []string
	cap   int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{keys: make(map[string]struct{}, capacity), cap: capacity}
}

// add records key and reports whether it was new.
func (s *seenSet) add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.keys, oldest)
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)
	return true
}
