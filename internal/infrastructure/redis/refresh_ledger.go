package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/icritic/users-service/internal/domain"
)

const refreshUsedPrefix = "users:refresh:used:"

// RefreshLedger marks refresh token ids as consumed with SET NX. Keys expire
// with the token so the set never outgrows the live token population.
type RefreshLedger struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewRefreshLedger(c *Client) *RefreshLedger {
	l := &RefreshLedger{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

func (l *RefreshLedger) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if l.rdb == nil {
		return false, domain.ErrRedisUnavailable(errors.New("redis not configured"))
	}
	if tokenID == "" {
		return false, domain.ErrMissingField("jti")
	}

	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := l.rdb.SetNX(ctx, refreshUsedPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, domain.ErrRedisUnavailable(err)
	}
	return ok, nil
}
