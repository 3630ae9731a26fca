package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/contacts-service/internal/application/auth"
)

const (
	publishTimeout = 2 * time.Second
	appID          = "contacts-service"
)

var errUnroutable = errors.New("rabbitmq: message unroutable")

// Publisher sends verification mail requests to the events exchange. Each
// publish waits for the broker confirm and fails if no queue took the message.
type Publisher struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	returns <-chan amqp.Return
}

// NewPublisher dials the broker eagerly so a bad URL fails at startup.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	return p.publish(ctx, RoutingKeyVerifyEmail, "verify_email", evt)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drop()
	return nil
}

// open requires p.mu.
func (p *Publisher) open() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err == nil {
		err = declareTopology(ch, p.exchange)
	}
	if err == nil {
		err = ch.Confirm(false)
	}
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: setup channel: %w", err)
	}

	p.conn, p.ch = conn, ch
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

// drop requires p.mu.
func (p *Publisher) drop() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch, p.returns = nil, nil, nil
}

func (p *Publisher) publish(ctx context.Context, key, msgType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode %s: %w", msgType, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		p.drop()
		if err := p.open(); err != nil {
			return err
		}
	}
	p.discardReturns()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         msgType,
		AppId:        appID,
		Timestamp:    time.Now().UTC(),
		Headers:      traceHeaders(ctx),
		Body:         body,
	}
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, true, false, msg)
	if err != nil {
		p.drop()
		return fmt.Errorf("rabbitmq: publish %s: %w", key, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		p.drop()
		return fmt.Errorf("rabbitmq: confirm %s: %w", key, err)
	}
	// basic.return arrives before the ack of the same message
	select {
	case ret := <-p.returns:
		return fmt.Errorf("%w: key=%s reply=%d %s", errUnroutable, key, ret.ReplyCode, ret.ReplyText)
	default:
	}
	if !acked {
		return fmt.Errorf("rabbitmq: broker nacked %s (tag %d)", key, dc.DeliveryTag)
	}
	return nil
}

// discardReturns drops returns left over from a publish that timed out.
func (p *Publisher) discardReturns() {
	for {
		select {
		case <-p.returns:
		default:
			return
		}
	}
}
