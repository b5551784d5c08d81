package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/exporta/internal/ownerctx"
	"github.com/smallbiznis/exporta/internal/seed"
)

// OwnerContext resolves which user owns the records touched by the
// request. Single-tenant deployments never send the header and fall
// back to the seeded default owner.
func (s *Server) OwnerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := s.cfg.DefaultOwnerID

		if raw := strings.TrimSpace(c.GetHeader("X-User-Id")); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed == 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			ownerID = parsed.Int64()
		}

		if ownerID == 0 {
			s.resolveDefaultOwner.Do(func() {
				id, err := seed.LookupDefaultOwner(s.db)
				if err != nil {
					return
				}
				s.defaultOwnerID = id
			})
			ownerID = s.defaultOwnerID
		}

		if ownerID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := ownerctx.WithOwnerID(c.Request.Context(), ownerID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) PreviewRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.previewLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.previewLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(ctx, "preview", "bucket_empty")
			}
			if res.RetryAfter > 0 {
				c.Header("Retry-After", formatRetryAfter(res.RetryAfter))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(ctx, "preview")
		}
		c.Next()
	}
}

func formatRetryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
