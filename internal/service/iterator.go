// Package service turns MinIO bucket notifications delivered over Kafka into
// loaded objects.
package service

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"
)

// Iterator loads the object referenced by every matching ObjectCreated record
// and commits the message once every object it produced has been acknowledged
// with FetchedObject.Done.
type Iterator[T any] struct {
	source MessageIterator
	loader LoaderFunc[T]
	match  func(bucket, key string) bool
}

// NewIterator builds an Iterator. A nil match accepts every object.
func NewIterator[T any](source MessageIterator, loader LoaderFunc[T], match func(bucket, key string) bool) *Iterator[T] {
	if match == nil {
		match = func(string, string) bool { return true }
	}
	return &Iterator[T]{source: source, loader: loader, match: match}
}

// Objects streams loaded objects until the source closes or ctx is done.
// Objects are handed out one at a time: the next one is not loaded until the
// previous one is acknowledged. Malformed messages are logged and committed; a
// message whose object fails to load is left uncommitted.
func (it *Iterator[T]) Objects(ctx context.Context) <-chan *FetchedObject[T] {
	out := make(chan *FetchedObject[T])
	go func() {
		defer close(out)

		for msg := range it.source.Messages() {
			var info notification.Info
			if err := json.Unmarshal(msg.Value, &info); err != nil {
				log.Printf("Skipping malformed notification at offset %d: %v", msg.Offset, err)
				it.commit(ctx, msg)
				continue
			}

			ok := true
			for _, event := range info.Records {
				if !strings.HasPrefix(event.EventName, "s3:ObjectCreated:") {
					continue
				}
				bucket := event.S3.Bucket.Name
				key, err := url.QueryUnescape(event.S3.Object.Key)
				if err != nil {
					log.Printf("Skipping undecodable object key %q: %v", event.S3.Object.Key, err)
					continue
				}
				if !it.match(bucket, key) {
					continue
				}

				data, err := it.loader(ctx, bucket, key)
				if err != nil {
					log.Printf("Error loading %s/%s: %v", bucket, key, err)
					ok = false
					continue
				}
				obj := newFetchedObject(bucket, key, data, event)
				select {
				case out <- obj:
				case <-ctx.Done():
					return
				}
				select {
				case <-obj.done:
				case <-ctx.Done():
					return
				}
			}

			if ok {
				it.commit(ctx, msg)
			}
		}
	}()
	return out
}

func (it *Iterator[T]) commit(ctx context.Context, msg kafka.Message) {
	if err := it.source.Commit(ctx, msg); err != nil {
		log.Printf("Failed to commit offset %d: %v", msg.Offset, err)
	}
}
