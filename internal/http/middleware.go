package http

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chat-api/internal/apperr"
	"chat-api/internal/auth"
	"chat-api/internal/domain"
)

const (
	requestIDHeader = "X-Request-Id"

	ctxRequestID = "request_id"
	ctxUser      = "user"
	ctxClaims    = "claims"
)

var errTooManyRequests = apperr.New(apperr.KindTooManyRequests, "too many requests")

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := h.logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(ctxRequestID),
		})
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	}
}

// requireAuth resolves the caller from a bearer token or the session cookie.
// Every failure is reported as a bare 401.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(h.cookieName); err == nil {
				token = cookie
			}
		}

		user, claims, err := h.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !apperr.Is(err, apperr.KindInternal) {
				err = apperr.Unauthorized("unauthorized")
			}
			h.writeError(c, err)
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// rateLimit spends one attempt of the client IP's quota for scope. The
// limiter failing counts as a denial.
func (h *Handler) rateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}

		quota, err := h.limiter.Take(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			h.logger.WithError(err).
				WithField("request_id", c.GetString(ctxRequestID)).
				Warn("rate limiter unavailable, denying request")
		}
		if quota.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(quota.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		}
		if err != nil || !quota.Allowed {
			if secs := int(math.Ceil(quota.RetryAfter.Seconds())); secs > 0 {
				c.Header("Retry-After", strconv.Itoa(secs))
			}
			h.writeError(c, errTooManyRequests)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// currentUser returns the user attached by requireAuth.
func currentUser(c *gin.Context) *domain.PublicUser {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.PublicUser)
	return user
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
