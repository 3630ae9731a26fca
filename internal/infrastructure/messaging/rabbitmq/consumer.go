package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/tracing"
)

// MailSender delivers one verification mail.
type MailSender interface {
	SendVerification(ctx context.Context, to, url string) error
}

type ConsumerConfig struct {
	RabbitURL string
	Exchange  string
	Prefetch  int
	Tag       string
}

const (
	minReconnect = time.Second
	maxReconnect = 30 * time.Second
)

// Consumer drains the mail queue and hands each request to a MailSender.
// It redials with exponential backoff whenever the broker connection drops.
type Consumer struct {
	cfg    ConsumerConfig
	sender MailSender
	lg     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(cfg ConsumerConfig, sender MailSender, lg zerolog.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	return &Consumer{
		cfg:    cfg,
		sender: sender,
		lg:     lg.With().Str("component", "mail_consumer").Logger(),
	}
}

// Start returns immediately; consumption continues until Stop or ctx ends.
func (c *Consumer) Start(ctx context.Context) error {
	if c.sender == nil {
		return errors.New("rabbitmq: consumer needs a mail sender")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		c.supervise(runCtx)
	}()
	return nil
}

// Stop cancels consumption and waits for the in-flight delivery, bounded by ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) supervise(ctx context.Context) {
	wait := minReconnect
	for {
		consumed, err := c.session(ctx)
		if ctx.Err() != nil {
			c.lg.Info().Msg("mail consumer stopped")
			return
		}
		if consumed {
			wait = minReconnect
		}
		c.lg.Warn().Err(err).Dur("retry_in", wait).Msg("mail consumer disconnected")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		wait = min(2*wait, maxReconnect)
	}
}

// session runs one connection's worth of consumption. consumed reports
// whether the subscription was established before the session ended.
func (c *Consumer) session(ctx context.Context) (consumed bool, err error) {
	conn, err := amqp.Dial(c.cfg.RabbitURL)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("channel: %w", err)
	}
	if err := declareTopology(ch, c.cfg.Exchange); err != nil {
		return false, err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return false, fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(MailQueue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("consume %s: %w", MailQueue, err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.lg.Info().Str("queue", MailQueue).Int("prefetch", c.cfg.Prefetch).Msg("mail consumer ready")

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case aerr := <-closed:
			return true, fmt.Errorf("connection closed: %v", aerr)
		case d, ok := <-deliveries:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			dctx, span := tracing.Start(withRemoteTrace(ctx, d.Headers), "mail.deliver "+d.RoutingKey,
				trace.WithSpanKind(trace.SpanKindConsumer))
			v := c.handle(dctx, d.RoutingKey, d.Body, d.Redelivered)
			span.SetAttributes(attribute.String("mail.verdict", v.String()))
			span.End()
			c.settle(d, v)
		}
	}
}

type verdict int

const (
	ack verdict = iota
	retry
	reject
)

func (v verdict) String() string {
	switch v {
	case ack:
		return "ack"
	case retry:
		return "retry"
	default:
		return "reject"
	}
}

func (c *Consumer) settle(d amqp.Delivery, v verdict) {
	var err error
	switch v {
	case ack:
		err = d.Ack(false)
	case retry:
		err = d.Nack(false, true)
	case reject:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.lg.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("settle delivery")
	}
}

// handle decides the fate of one message. A send failure is retried once via
// requeue; the redelivery failing too goes to the dead-letter queue, as do
// payloads that cannot be used. A send cut short by shutdown is requeued
// without using up the retry. Foreign routing keys are acked and ignored.
func (c *Consumer) handle(ctx context.Context, routingKey string, body []byte, redelivered bool) verdict {
	if routingKey != RoutingKeyVerifyEmail {
		c.lg.Warn().Str("routing_key", routingKey).Msg("ignoring message")
		return ack
	}

	var evt auth.VerifyEmailEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		c.lg.Error().Err(err).Int("bytes", len(body)).Msg("undecodable verify_email message")
		return reject
	}
	if evt.Email == "" || evt.URL == "" {
		c.lg.Error().Str("user_id", evt.UserID).Msg("verify_email message without recipient or link")
		return reject
	}

	start := time.Now()
	err := c.sender.SendVerification(ctx, evt.Email, evt.URL)
	log := c.lg.With().Str("user_id", evt.UserID).Dur("took", time.Since(start)).Logger()
	switch {
	case err == nil:
		log.Info().Msg("verification mail sent")
		return ack
	case errors.Is(err, context.Canceled):
		log.Info().Msg("verification mail interrupted by shutdown, requeueing")
		return retry
	case redelivered:
		log.Error().Err(err).Msg("verification mail failed, dead-lettering")
		return reject
	default:
		log.Warn().Err(err).Msg("verification mail failed, requeueing")
		return retry
	}
}
