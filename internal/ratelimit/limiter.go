package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tiffinbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sendKeyPrefix = "tiffinbill:ratelimit:send:"

	// One batch every ~6 seconds steady-state, short bursts allowed.
	sendRate  = 0.17
	sendBurst = 3
)

// SendLimiter throttles the message-sending endpoints. When redis is not
// configured the limiter is disabled and every request passes.
type SendLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
}

type LimiterParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewSendLimiter(p LimiterParams) *SendLimiter {
	log := p.Log.Named("ratelimit")
	if p.Config.RedisAddr == "" {
		log.Info("redis not configured, send rate limiting disabled")
		return &SendLimiter{log: log}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
	})
	return &SendLimiter{
		bucket: NewTokenBucket(client),
		log:    log,
	}
}

// Allow reports whether a send operation keyed by caller identity may
// proceed. Redis failures fail open: delivery matters more than throttling.
func (l *SendLimiter) Allow(ctx context.Context, key string) (bool, *Result) {
	if l == nil || l.bucket == nil {
		return true, nil
	}

	res, err := l.bucket.Allow(ctx, sendKeyPrefix+key, sendRate, sendBurst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true, nil
	}
	return res.Allowed, res
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewSendLimiter),
)
