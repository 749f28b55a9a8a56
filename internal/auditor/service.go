package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-commerce-bench/internal/checkout"
	kafkax "github.com/ariefcatur/go-commerce-bench/internal/kafka"
	"github.com/ariefcatur/go-commerce-bench/internal/metrics"
	"github.com/ariefcatur/go-commerce-bench/internal/redisx"
)

// Cache is the slice of Redis the auditor needs; redisx.Cache implements it.
type Cache interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Service tails checkout.finalized: it refreshes the order-status cache so
// read-path load lands on Redis, and keeps an out-of-band record of per-order
// processing cost for the load-test dashboards.
type Service struct {
	Cache       Cache
	Log         *zap.Logger
	Metrics     *metrics.Checkout
	ServiceName string
}

func (s *Service) HandleCheckoutFinalized(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != checkout.EventCheckoutFinalized {
		return nil
	}

	// at-least-once delivery, dedup by event id
	dkey := fmt.Sprintf(redisx.KeyDedup, "auditor", env.EventID)
	if exists, _ := s.Cache.Exists(ctx, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[checkout.FinalizedPayload](env.Payload)
	if err != nil {
		return err
	}

	skey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	sval := fmt.Sprintf(`{"status":%q,"total_cents":%d}`, p.Status, p.TotalCents)
	if err := s.Cache.Set(ctx, skey, sval, redisx.TTLStatusCache); err != nil {
		return err
	}

	// The marker goes down only after the refresh landed: a failure above
	// leaves the event unmarked, so redelivery reprocesses it instead of
	// skipping it. Refilling the cache twice is harmless.
	_ = s.Cache.Set(ctx, dkey, "1", redisx.TTLDedup)

	s.Metrics.Observe(p.Status, p.ProcessingMs)
	s.Log.Info("checkout finalized",
		zap.String("order_id", p.OrderID),
		zap.String("status", p.Status),
		zap.Int64("total_cents", p.TotalCents),
		zap.Int64("processing_ms", p.ProcessingMs),
	)
	return nil
}
