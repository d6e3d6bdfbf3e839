package service

import (
	"context"
	"sync"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"
)

// MessageIterator is a source of bucket notification messages, such as
// *kafkaclient.Consumer.
type MessageIterator interface {
	// Messages is closed by the implementation when the source stops.
	Messages() <-chan kafka.Message
	Commit(ctx context.Context, msg kafka.Message) error
}

// LoaderFunc reads and decodes the object a notification points at.
type LoaderFunc[T any] func(ctx context.Context, bucket, key string) (T, error)

// FetchedObject pairs a loaded object with the event that announced it.
//
// The consumer must call Done once it has finished with the object. The
// iterator holds the notification's offset until then, so a crash mid-reload
// redelivers the message.
type FetchedObject[T any] struct {
	Bucket string
	Key    string
	Data   T
	Event  notification.Event

	done chan struct{}
	once sync.Once
}

func newFetchedObject[T any](bucket, key string, data T, event notification.Event) *FetchedObject[T] {
	return &FetchedObject[T]{Bucket: bucket, Key: key, Data: data, Event: event, done: make(chan struct{})}
}

// Done acknowledges the object. Calling it more than once is harmless.
func (o *FetchedObject[T]) Done() {
	o.once.Do(func() { close(o.done) })
}
