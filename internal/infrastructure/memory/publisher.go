package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/icritic/users-service/internal/application/auth"
)

// NoopPublisher logs events instead of sending them. It keeps the last
// events so tests can inspect them.
type NoopPublisher struct {
	lg zerolog.Logger

	mu     sync.Mutex
	status []auth.StatusChangedEvent
	roles  []auth.RoleChangedEvent
}

func NewNoopPublisher(lg zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{lg: lg}
}

func (p *NoopPublisher) PublishStatusChanged(ctx context.Context, evt auth.StatusChangedEvent) error {
	p.mu.Lock()
	p.status = append(p.status, evt)
	p.mu.Unlock()

	p.lg.Info().
		Int64("user_id", evt.UserID).
		Int64("actor_id", evt.ActorID).
		Str("action", evt.Action.String()).
		Msg("[noop] status changed")
	return nil
}

func (p *NoopPublisher) PublishRoleChanged(ctx context.Context, evt auth.RoleChangedEvent) error {
	p.mu.Lock()
	p.roles = append(p.roles, evt)
	p.mu.Unlock()

	p.lg.Info().
		Int64("user_id", evt.UserID).
		Str("role", evt.Role.String()).
		Msg("[noop] role changed")
	return nil
}

func (p *NoopPublisher) StatusEvents() []auth.StatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auth.StatusChangedEvent(nil), p.status...)
}

func (p *NoopPublisher) RoleEvents() []auth.RoleChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auth.RoleChangedEvent(nil), p.roles...)
}
