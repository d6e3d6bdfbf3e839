// Package kafkaclient wraps a kafka-go reader in a channel-based consumer with
// manual offset commits.
//
// A Consumer reads from one topic as a member of a consumer group. Messages are
// delivered on an unbuffered channel, so the read loop never runs ahead of the
// caller by more than one message. Offsets are never committed automatically:
// callers commit each message through Commit once it is fully handled, and
// anything left uncommitted is redelivered after a restart.
//
// Typical use:
//
//	c, err := kafkaclient.NewConsumer(kafkaclient.Config{Broker: b, Topic: t, GroupID: g})
//	if err != nil { ... }
//	c.Start(ctx)
//	for msg := range c.Messages() {
//		handle(msg)
//		_ = c.Commit(ctx, msg)
//	}
//	c.Stop()
package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config names the broker, topic and consumer group to read from. All three
// are required.
type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// Consumer pumps messages from a Reader into a channel until stopped.
//
// The zero value is not usable; build one with NewConsumer or
// NewConsumerWithReader. Start must be called once before Messages yields
// anything, and Stop releases the reader.
type Consumer struct {
	reader     Reader
	messages   chan kafka.Message
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	retryDelay time.Duration
}

// NewConsumer connects a group reader. Offsets are only committed through Commit.
func NewConsumer(cfg Config) (*Consumer, error) {
	if cfg.Broker == "" || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka: broker, topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.Broker},
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        2 * time.Second,
	})
	return NewConsumerWithReader(reader), nil
}

// NewConsumerWithReader builds a Consumer around an existing Reader. Tests use
// it to substitute an in-memory reader.
func NewConsumerWithReader(r Reader) *Consumer {
	return &Consumer{
		reader:     r,
		messages:   make(chan kafka.Message),
		done:       make(chan struct{}),
		retryDelay: time.Second,
	}
}

// Messages is closed when the consumer stops.
func (c *Consumer) Messages() <-chan kafka.Message {
	return c.messages
}

// Commit marks msg as processed for the consumer group. Commits are
// synchronous; an error is wrapped with the topic, partition and offset and the
// message will be delivered again after a rebalance or restart.
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}

// Start runs the read loop in a goroutine.
//
// The loop ends, closing the Messages channel, when any of these happens:
//   - ctx is done;
//   - Stop is called;
//   - the reader reports io.EOF.
//
// Any other read error is logged and retried after a short pause.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.messages)

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil || c.stopped() {
					return
				}
				log.Printf("Error reading message: %v", err)
				select {
				case <-time.After(c.retryDelay):
					continue
				case <-ctx.Done():
					return
				case <-c.done:
					return
				}
			}

			select {
			case c.messages <- msg:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Consumer) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Stop ends the read loop and closes the reader, then waits for the loop to
// exit. Messages already received but not committed stay uncommitted. It is
// safe to call twice.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		if err := c.reader.Close(); err != nil {
			log.Printf("Failed to close Kafka reader: %v", err)
		}
		c.wg.Wait()
	})
}
