package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"followup-platform/internal/billing"
	"followup-platform/internal/campaign"
	"followup-platform/internal/config"
	"followup-platform/internal/contact"
	"followup-platform/internal/engine"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
	"followup-platform/internal/ratelimit"
	"followup-platform/pkg/logger"
	"followup-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
)

const maxDeliveries = 3

// The worker consumes gateway events that arrive via the message broker
// instead of the HTTP webhook. Deployments pick one ingestion path; the
// engine's dedup makes running both at once safe.
func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	cfg = cfg.WithDefaults()

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.AMQP.URL == "" {
		log.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	limiter, err := ratelimit.NewRedisLimiter(rdb, cfg.Engine.SendsPerMinute, time.Minute)
	if err != nil {
		log.Error("rate limiter init failed", "err", err)
		os.Exit(1)
	}
	sender, err := gateway.NewWhatsAppClient(gateway.WhatsAppConfig{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
	})
	if err != nil {
		log.Error("gateway init failed", "err", err)
		os.Exit(1)
	}

	eng := engine.New(engine.Deps{
		Campaigns:   campaign.NewPostgresRepo(db),
		Contacts:    contact.NewPostgresRepo(db),
		Enrollments: enrollment.NewPostgresRepo(db),
		Attempts:    enrollment.NewPostgresAttemptRepo(db),
		Inbound:     enrollment.NewPostgresInboundRepo(db),
		Limiter:     limiter,
		Sender:      sender,
		Authz:       billing.NewService(billing.NewPostgresRepo(db)),
		Log:         log,
	}, engine.Config{MaxParallel: cfg.Engine.MaxParallel})

	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		log.Error("amqp dial failed", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("amqp channel failed", "err", err)
		os.Exit(1)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.AMQP.InboundQueue, true, false, false, false, nil)
	if err != nil {
		log.Error("queue declare failed", "queue", cfg.AMQP.InboundQueue, "err", err)
		os.Exit(1)
	}

	// Manual acks; a crash mid-message redelivers it.
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		log.Error("consume failed", "err", err)
		os.Exit(1)
	}

	log.Info("worker running", "queue", q.Name, "env", cfg.App.Env)

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown initiated")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Error("amqp delivery channel closed")
				return
			}
			handleDelivery(rootCtx, eng, ch, q.Name, d, log)
		}
	}
}

func handleDelivery(ctx context.Context, eng *engine.Engine, ch *amqp.Channel, queue string, d amqp.Delivery, log *slog.Logger) {
	msg, err := gateway.ParseInboundPayload(bytes.NewReader(d.Body))
	switch {
	case errors.Is(err, gateway.ErrNotAMessageEvent):
		_ = d.Ack(false)
		return
	case err != nil:
		// Malformed bodies never become parseable; drop them.
		log.Warn("malformed queue payload dropped", "err", err)
		_ = d.Ack(false)
		return
	}
	if msg.FromMe {
		_ = d.Ack(false)
		return
	}

	ev := enrollment.InboundEvent{
		ProviderMessageID: msg.MessageID,
		AssistantID:       msg.Instance,
		Phone:             msg.From,
		Text:              msg.Text,
		ReceivedAt:        msg.ReceivedAt,
	}
	if err := eng.HandleInboundEvent(ctx, ev); err != nil {
		retries := deliveryRetries(d)
		if retries+1 >= maxDeliveries {
			log.Error("inbound event dropped after retries",
				"provider_message_id", msg.MessageID, "retries", retries, "err", err)
			_ = d.Ack(false)
			return
		}
		log.Warn("inbound event requeued",
			"provider_message_id", msg.MessageID, "retries", retries, "err", err)
		_ = republish(ch, queue, d, retries+1)
		_ = d.Ack(false)
		return
	}
	_ = d.Ack(false)
}

// deliveryRetries reads the x-retry-count header we set on republish.
func deliveryRetries(d amqp.Delivery) int {
	switch v := d.Headers["x-retry-count"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

// republish re-enqueues the delivery with an incremented retry header. A
// plain Nack-requeue would loop hot without counting attempts.
func republish(ch *amqp.Channel, queue string, d amqp.Delivery, retries int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = int32(retries)

	return ch.Publish("", queue, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
	})
}
