package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"blocosrj/internal/app"
	"blocosrj/internal/config"
	"blocosrj/internal/dataset"
	"blocosrj/internal/env"
	"blocosrj/internal/logging"
	"blocosrj/internal/match"
	"blocosrj/internal/metrics"
	"blocosrj/internal/service"
	"blocosrj/pkg/graceful"
	"blocosrj/pkg/kafkaclient"
)

func main() {
	logging.Init("watcher")
	env.Load()

	cfg, err := config.Load(env.Get("BLOCOS_CONFIG", "config.yml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Kafka.Broker == "" {
		cfg.Kafka.Broker = env.MustGet("KAFKA_BROKER")
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = env.MustGet("KAFKA_TOPIC")
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = env.MustGet("KAFKA_GROUP_ID")
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("Serving metrics on %s", cfg.Metrics.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server failed: %v", err)
		}
	}()

	session := a.NewSession(nil)
	if _, err := a.LoadDataset(ctx, session); err != nil {
		log.Printf("Initial dataset load failed: %v", err)
		metrics.DatasetReloads.WithLabelValues("error").Inc()
	} else {
		warmUp(ctx, session)
	}

	log.Printf("Connecting to Kafka broker: %s on topic: %s with group ID: %s", cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	consumer, err := kafkaclient.NewConsumer(kafkaclient.Config{
		Broker:  cfg.Kafka.Broker,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	if err != nil {
		log.Fatalf("Failed to create kafka consumer: %v", err)
	}
	consumer.Start(ctx)

	it := service.NewIterator(consumer, loader(a), datasetMatcher(cfg.Dataset.Source))
	for obj := range it.Objects(ctx) {
		log.Printf("Dataset object %s/%s changed, reloading", obj.Bucket, obj.Key)
		if n := session.Load(string(obj.Data)); n == 0 {
			metrics.DatasetReloads.WithLabelValues("empty").Inc()
			obj.Done()
			continue
		}
		warmUp(ctx, session)
		obj.Done()
	}

	consumer.Stop()
	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Printf("Metrics server shutdown: %v", err)
	}
	log.Println("Watcher stopped.")
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// warmUp geocodes every bloco lacking coordinates so later sessions hit the
// persisted cache.
func warmUp(ctx context.Context, s *match.Session) {
	start := time.Now()
	rep := s.Enrich(ctx)
	metrics.DatasetReloads.WithLabelValues("ok").Inc()
	log.Printf("Enriched %d blocos in %s, %d unresolved", rep.Items, time.Since(start).Round(time.Millisecond), rep.Failures)
}

func loader(a *app.App) service.LoaderFunc[[]byte] {
	return func(ctx context.Context, bucket, key string) ([]byte, error) {
		return a.Fetcher.Fetch(ctx, "s3://"+bucket+"/"+key)
	}
}

// datasetMatcher accepts only the configured dataset object when it lives in
// S3, and any object otherwise.
func datasetMatcher(source string) func(bucket, key string) bool {
	if !strings.HasPrefix(source, "s3://") {
		return nil
	}
	bucket, key, err := dataset.SplitS3(source)
	if err != nil {
		return nil
	}
	return func(b, k string) bool { return b == bucket && k == key }
}
