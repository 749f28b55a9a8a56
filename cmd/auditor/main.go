package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-commerce-bench/internal/auditor"
	"github.com/ariefcatur/go-commerce-bench/internal/checkout"
	"github.com/ariefcatur/go-commerce-bench/internal/config"
	kafkax "github.com/ariefcatur/go-commerce-bench/internal/kafka"
	"github.com/ariefcatur/go-commerce-bench/internal/logging"
	"github.com/ariefcatur/go-commerce-bench/internal/metrics"
	"github.com/ariefcatur/go-commerce-bench/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.ServiceName + "-auditor")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &auditor.Service{
		Cache:       redisx.Cache{C: rdb},
		Log:         log,
		Metrics:     metrics.NewCheckout("auditor"),
		ServiceName: cfg.ServiceName + "-auditor",
	}

	// Consumer
	group := getenv("AUDITOR_GROUP", "auditor-svc")
	workers := mustAtoi(os.Getenv("AUDITOR_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, checkout.TopicCheckoutFinalized, workers)

	go func() {
		log.Info("auditor consumer started",
			zap.String("group", group),
			zap.String("topic", checkout.TopicCheckoutFinalized),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleCheckoutFinalized); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// metrics endpoint only; no API surface here
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		_ = http.ListenAndServe(getenv("AUDITOR_METRICS_ADDR", ":9091"), mux)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
