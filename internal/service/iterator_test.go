package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeSource struct {
	messages  chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeSource(values ...string) *fakeSource {
	s := &fakeSource{messages: make(chan kafka.Message, len(values))}
	for i, v := range values {
		s.messages <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	close(s.messages)
	return s
}

func (s *fakeSource) Messages() <-chan kafka.Message { return s.messages }

func (s *fakeSource) Commit(_ context.Context, msg kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, msg.Offset)
	return nil
}

func (s *fakeSource) offsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

func created(bucket, key string) string {
	return fmt.Sprintf(`{"Records":[{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`, bucket, key)
}

func TestIterator_Objects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	src := newFakeSource(
		created("carnaval", "2025%2Fblocos.csv"),
		`not json`,
		created("carnaval", "other.csv"),
		`{"Records":[{"eventName":"s3:ObjectRemoved:Delete","s3":{"bucket":{"name":"carnaval"},"object":{"key":"blocos.csv"}}}]}`,
		created("carnaval", "2025%2Fbroken.csv"),
	)
	loader := func(_ context.Context, bucket, key string) (string, error) {
		if key == "2025/broken.csv" {
			return "", errors.New("access denied")
		}
		return bucket + "/" + key, nil
	}
	match := func(_, key string) bool { return key != "other.csv" }

	var got []string
	for obj := range NewIterator(src, loader, match).Objects(ctx) {
		got = append(got, obj.Data)
		if obj.Event.EventName != "s3:ObjectCreated:Put" {
			t.Errorf("event = %q", obj.Event.EventName)
		}
		obj.Done()
	}

	if len(got) != 1 || got[0] != "carnaval/2025/blocos.csv" {
		t.Errorf("objects = %v, want [carnaval/2025/blocos.csv]", got)
	}
	want := []int64{0, 1, 2, 3}
	if got := src.offsets(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("committed = %v, want %v", got, want)
	}
}

func TestIterator_CommitWaitsForDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	src := newFakeSource(created("carnaval", "blocos.csv"))
	loader := func(_ context.Context, bucket, key string) (string, error) {
		return bucket + "/" + key, nil
	}
	objects := NewIterator(src, loader, nil).Objects(ctx)

	obj, ok := <-objects
	if !ok {
		t.Fatal("no object delivered")
	}
	if got := src.offsets(); len(got) != 0 {
		t.Fatalf("committed %v before the object was acknowledged", got)
	}

	obj.Done()
	obj.Done()
	for range objects {
	}
	if got := src.offsets(); fmt.Sprint(got) != "[0]" {
		t.Errorf("committed = %v, want [0]", got)
	}
}

func TestIterator_CanceledWhileWaitingSkipsCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	src := newFakeSource(created("carnaval", "blocos.csv"))
	loader := func(_ context.Context, bucket, key string) (string, error) {
		return bucket + "/" + key, nil
	}
	objects := NewIterator(src, loader, nil).Objects(ctx)

	if _, ok := <-objects; !ok {
		t.Fatal("no object delivered")
	}
	cancel()
	for range objects {
	}
	if got := src.offsets(); len(got) != 0 {
		t.Errorf("committed = %v, want nothing", got)
	}
}
