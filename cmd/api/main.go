package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-commerce-bench/internal/catalog"
	"github.com/ariefcatur/go-commerce-bench/internal/checkout"
	"github.com/ariefcatur/go-commerce-bench/internal/config"
	"github.com/ariefcatur/go-commerce-bench/internal/httpx"
	"github.com/ariefcatur/go-commerce-bench/internal/identity"
	kafkax "github.com/ariefcatur/go-commerce-bench/internal/kafka"
	"github.com/ariefcatur/go-commerce-bench/internal/logging"
	"github.com/ariefcatur/go-commerce-bench/internal/metrics"
	"github.com/ariefcatur/go-commerce-bench/internal/orders"
	"github.com/ariefcatur/go-commerce-bench/internal/postgres"
	"github.com/ariefcatur/go-commerce-bench/internal/redisx"
	"github.com/ariefcatur/go-commerce-bench/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicCheckoutFinalized, 1024)
	prod.Start(ctx)

	// Stores & engine
	catalogStore := &catalog.Store{DB: db}
	ledger := &orders.Repo{DB: db}
	engine := &checkout.Engine{
		Catalog:     catalogStore,
		Ledger:      ledger,
		Producer:    prod,
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName,
		SpinMs:      cfg.CheckoutSpinMs,
	}

	// Router: health + metrics open, everything else behind the JWT gate.
	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.JWTSecret))
		(&httpx.OrdersHandler{
			Engine:  engine,
			Orders:  ledger,
			Redis:   rdb,
			Metrics: metrics.NewCheckout("api"),
		}).Register(r)
		(&httpx.ProductsHandler{Store: catalogStore}).Register(r)
		(&httpx.UsersHandler{Repo: &users.Repo{DB: db}}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // stop intake -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
