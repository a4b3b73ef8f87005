package middleware

import (
	"strconv"
	"time"

	redisStore "gift-market-wallet/internal/adapter/storage/redis"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule is a fixed-window quota for a route group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules maps route groups to their quotas. Withdrawal is
// the tightest group since every request can move funds on-chain.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth":       {Limit: 10, Window: time.Minute},
		"wallet":     {Limit: 60, Window: time.Minute},
		"deposit":    {Limit: 20, Window: time.Minute},
		"withdrawal": {Limit: 10, Window: time.Minute},
		"assistant":  {Limit: 30, Window: time.Minute},
		"jobs":       {Limit: 30, Window: time.Minute},
	}
}

// RateLimiter enforces a per-caller fixed-window quota for the named group.
// Authenticated requests are keyed by user id, anonymous ones by client IP.
// If the counter store is unreachable the request is allowed; availability
// is preferred over strict limiting when Redis is degraded.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := group + ":ip:" + c.ClientIP()
		if auth := AuthFromGin(c); auth != nil {
			key = group + ":user:" + strconv.FormatInt(auth.UserID, 10)
		}

		res, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit store unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))

		if !res.Allowed {
			retryAfter := res.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.AbortError(c, apperror.ErrRateLimitExceeded())
			return
		}
		c.Next()
	}
}
