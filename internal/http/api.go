package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chat-api/internal/apperr"
	"chat-api/internal/auth"
	"chat-api/internal/ratelimit"
	"chat-api/internal/service"
)

// Limiter spends one attempt of subject's quota within scope.
type Limiter interface {
	Take(ctx context.Context, scope, subject string) (ratelimit.Quota, error)
}

// NewEngine returns a gin engine that only honours forwarding headers from
// the given proxy IPs or CIDRs. With none, the socket peer is the client.
func NewEngine(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	if len(trustedProxies) == 0 {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	return router, nil
}

// Options configures a Handler. Users and Messages are required.
type Options struct {
	Users    service.UserService
	Messages service.MessageService
	Media    service.MediaService
	// Limiter throttles signup and login. Nil disables throttling.
	Limiter Limiter
	Logger  *logrus.Logger
	// Ping reports store health for /api/health.
	Ping func(ctx context.Context) error

	CookieName   string
	CookieSecure bool
	TokenTTL     time.Duration
	CORSOrigin   string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	messages service.MessageService
	media    service.MediaService
	limiter  Limiter
	logger   *logrus.Logger
	ping     func(ctx context.Context) error

	cookieName   string
	cookieSecure bool
	tokenTTL     time.Duration
	corsOrigin   string
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Media == nil {
		opts.Media = service.NewMediaService(nil, "")
	}
	if strings.TrimSpace(opts.CookieName) == "" {
		opts.CookieName = "jwt"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = auth.DefaultTokenTTL
	}
	return &Handler{
		users:        opts.Users,
		messages:     opts.Messages,
		media:        opts.Media,
		limiter:      opts.Limiter,
		logger:       opts.Logger,
		ping:         opts.Ping,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		tokenTTL:     opts.TokenTTL,
		corsOrigin:   opts.CORSOrigin,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), h.requestLogger(), corsMiddleware(h.corsOrigin))

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		authGroup := api.Group("/auth")
		authGroup.POST("/signup", h.rateLimit("signup"), h.signup)
		authGroup.POST("/login", h.rateLimit("login"), h.login)
		authGroup.POST("/logout", h.requireAuth(), h.logout)
		authGroup.GET("/me", h.requireAuth(), h.me)
		authGroup.PUT("/profile", h.requireAuth(), h.updateProfile)

		messages := api.Group("/messages", h.requireAuth())
		messages.POST("/send", h.sendMessage)
		messages.GET("/conversations", h.conversations)
		messages.GET("/single/:messageId", h.getMessage)
		messages.GET("/:userId", h.getMessages)
		messages.DELETE("/:messageId", h.deleteMessage)

		uploads := api.Group("/uploads", h.requireAuth())
		uploads.POST("/image", h.uploadImage)
		uploads.GET("", h.listUploads)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	origin = strings.TrimSpace(origin)
	return func(c *gin.Context) {
		switch origin {
		case "":
		case "*":
			// any site may call the API, but never with the session cookie
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		default:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.writeError(c, apperr.New(apperr.KindUnavailable, "database unavailable").Wrap(err))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
