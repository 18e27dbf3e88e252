package messaging

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
)

const publishTimeout = 2 * time.Second

var eventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "users_service",
		Name:      "events_published_total",
		Help:      "User lifecycle events handed to the broker",
	},
	[]string{"event", "result"},
)

// NotifyingRepo wraps a UserRepo and emits an event after every successful
// role or status write. Publishing is best effort: a failure is logged and
// counted, never returned to the caller, since the write already committed.
type NotifyingRepo struct {
	auth.UserRepo

	pub auth.EventPublisher
	lg  zerolog.Logger
	now func() time.Time
}

func NewNotifyingRepo(repo auth.UserRepo, pub auth.EventPublisher, lg zerolog.Logger) *NotifyingRepo {
	return &NotifyingRepo{UserRepo: repo, pub: pub, lg: lg, now: time.Now}
}

func (r *NotifyingRepo) UpdateStatus(ctx context.Context, t domain.StatusTransition) error {
	if err := r.UserRepo.UpdateStatus(ctx, t); err != nil {
		return err
	}

	at := t.At
	if at.IsZero() {
		at = r.now().UTC()
	}
	evt := auth.StatusChangedEvent{
		UserID:  t.UserID,
		ActorID: t.ActorID,
		Action:  t.Action,
		Motive:  t.Motive,
		At:      at,
	}
	r.report("status_changed", t.UserID, r.withTimeout(ctx, func(ctx context.Context) error {
		return r.pub.PublishStatusChanged(ctx, evt)
	}))
	return nil
}

func (r *NotifyingRepo) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	if err := r.UserRepo.UpdateRole(ctx, id, role); err != nil {
		return err
	}

	evt := auth.RoleChangedEvent{UserID: id, Role: role, At: r.now().UTC()}
	r.report("role_changed", id, r.withTimeout(ctx, func(ctx context.Context) error {
		return r.pub.PublishRoleChanged(ctx, evt)
	}))
	return nil
}

// withTimeout detaches from request cancellation so a client hangup
// does not drop the event.
func (r *NotifyingRepo) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return fn(ctx)
}

func (r *NotifyingRepo) report(event string, userID int64, err error) {
	if err != nil {
		eventsPublishedTotal.WithLabelValues(event, "error").Inc()
		r.lg.Warn().Err(err).Str("event", event).Int64("user_id", userID).Msg("event publish failed")
		return
	}
	eventsPublishedTotal.WithLabelValues(event, "ok").Inc()
}
