package ratelimit

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/exporta/internal/config"
	"go.uber.org/zap"
)

// PreviewLimiter throttles anonymous preview calculations per client.
// A nil limiter means rate limiting is disabled and everything passes.
type PreviewLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewPreviewLimiter(cfg config.Config, log *zap.Logger) *PreviewLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})

	return &PreviewLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.PreviewRate,
		burst:  cfg.RateLimit.PreviewBurst,
		log:    log.Named("ratelimit.preview"),
	}
}

func (l *PreviewLimiter) Allow(ctx context.Context, clientKey string) (*Result, error) {
	if l == nil {
		return &Result{Allowed: true}, nil
	}

	key := fmt.Sprintf("ratelimit:preview:%s", clientKey)
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		// Redis being down should not take previews down with it.
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return &Result{Allowed: true}, nil
	}
	return res, nil
}
