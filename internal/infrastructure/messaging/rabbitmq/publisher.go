package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
)

const (
	DefaultExchange = "users.events"

	KeyUserBanned   = "users.status.banned"
	KeyUserUnbanned = "users.status.unbanned"
	KeyRoleChanged  = "users.role.changed"

	// upper bound on waiting for the broker's confirm
	confirmWait = 2 * time.Second
)

// Publisher sends user events to a durable topic exchange with publisher
// confirms and mandatory routing. It reconnects lazily after a failure.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// Ping reports whether the connection is currently usable.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureConnected(); err != nil {
		return domain.ErrRabbitUnavailable(err)
	}
	return nil
}

type statusChangedMessage struct {
	UserID     int64     `json:"userId"`
	ActorID    int64     `json:"actorId"`
	Action     string    `json:"action"`
	Motive     string    `json:"motive,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type roleChangedMessage struct {
	UserID     int64     `json:"userId"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, evt auth.StatusChangedEvent) error {
	key, msg := statusMessage(evt)
	return p.publishJSON(ctx, key, msg)
}

func (p *Publisher) PublishRoleChanged(ctx context.Context, evt auth.RoleChangedEvent) error {
	return p.publishJSON(ctx, KeyRoleChanged, roleChangedMessage{
		UserID:     evt.UserID,
		Role:       evt.Role.String(),
		OccurredAt: evt.At.UTC(),
	})
}

func statusMessage(evt auth.StatusChangedEvent) (string, statusChangedMessage) {
	key := KeyUserUnbanned
	if evt.Action == domain.ActionBan {
		key = KeyUserBanned
	}
	return key, statusChangedMessage{
		UserID:     evt.UserID,
		ActorID:    evt.ActorID,
		Action:     evt.Action.String(),
		Motive:     evt.Motive,
		OccurredAt: evt.At.UTC(),
	}
}

func buildPublishing(routingKey string, payload any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s: %w", routingKey, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         routingKey,
		Timestamp:    now,
		AppId:        "users-service",
		Body:         body,
	}, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	msg, err := buildPublishing(routingKey, payload, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return domain.ErrRabbitUnavailable(err)
	}

	// drop leftovers from an earlier timed-out publish
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, msg); err != nil {
		p.resetConn()
		return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: %w", routingKey, err))
	}

	timer := time.NewTimer(confirmWait)
	defer timer.Stop()

	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)

	case conf := <-p.confirmCh:
		// the broker sends basic.return before the ack for the same message
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-timer.C:
		return domain.ErrRabbitUnavailable(fmt.Errorf("confirm timeout: key=%s", routingKey))

	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
