package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const defaultRequestsPerMinute = 1000

type PlanLimitMiddleware struct {
	redis *redis.Client
	log   *logger.Logger
}

func NewPlanLimitMiddleware(redis *redis.Client, log *logger.Logger) *PlanLimitMiddleware {
	return &PlanLimitMiddleware{redis: redis, log: log}
}

// TenantRateLimit throttles per tenant using the plan's requests_per_minute
// limit. Redis failures fail open; throttling is a protection, not a ledger.
func (m *PlanLimitMiddleware) TenantRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := ResolutionFrom(c)
		if res == nil || res.Tenant == nil || res.IsMaster {
			c.Next()
			return
		}

		limit := res.Tenant.LimitFor("requests_per_minute")
		if limit <= 0 {
			limit = defaultRequestsPerMinute
		}

		key := fmt.Sprintf("rate_limit:tenant:%s", res.Tenant.ID)
		current, err := m.redis.Get(c.Request.Context(), key).Int64()
		if err != nil && err != redis.Nil {
			m.log.Error("redis error in rate limiting", err)
			c.Next()
			return
		}

		reset := time.Now().Add(time.Minute).Unix()
		if current >= limit {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			dto.AbortWithError(c, tenant.ErrPlanLimitReached.WithDetails(map[string]any{
				"resource": "requests_per_minute",
				"limit":    limit,
				"reset":    reset,
			}))
			return
		}

		pipe := m.redis.Pipeline()
		pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, time.Minute)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			m.log.Error("redis pipeline error in rate limiting", err)
		}

		remaining := limit - (current + 1)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		c.Next()
	}
}

// GlobalRateLimit throttles unauthenticated traffic per client IP.
func (m *PlanLimitMiddleware) GlobalRateLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:global:%s", c.ClientIP())

		current, err := m.redis.Get(c.Request.Context(), key).Int64()
		if err != nil && err != redis.Nil {
			m.log.Error("redis error in global rate limiting", err)
			c.Next()
			return
		}

		if current >= limit {
			reset := time.Now().Add(time.Minute).Unix()
			c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			dto.AbortWithError(c, tenant.ErrPlanLimitReached.WithDetails(map[string]any{
				"resource": "requests_per_minute",
				"limit":    limit,
				"reset":    reset,
			}))
			return
		}

		pipe := m.redis.Pipeline()
		pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, time.Minute)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			m.log.Error("redis pipeline error in global rate limiting", err)
		}

		c.Next()
	}
}
