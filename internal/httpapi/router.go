package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the settings NewRouter needs.
type RouterConfig struct {
	AllowedOrigins []string
	Verifier       *TokenVerifier
	// InternalAPIKey guards /internal routes. Empty disables them.
	InternalAPIKey string
	// Limiter may be nil; ClaimRateLimit <= 0 also disables limiting.
	Limiter        *RateLimiter
	ClaimRateLimit int
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), Logging())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	api.Use(RequireUser(cfg.Verifier))
	{
		api.GET("/dashboard", h.Dashboard)
		api.GET("/referrals", h.Referrals)
		api.GET("/rewards", h.Rewards)

		claim := []gin.HandlerFunc{h.Checkin}
		if cfg.Limiter != nil && cfg.ClaimRateLimit > 0 {
			claim = append([]gin.HandlerFunc{cfg.Limiter.LimitPerUser("checkin", cfg.ClaimRateLimit, time.Minute)}, claim...)
		}
		api.POST("/checkin", claim...)
	}

	if cfg.InternalAPIKey != "" {
		internal := r.Group("/internal")
		internal.Use(RequireAPIKey(cfg.InternalAPIKey))
		{
			internal.POST("/referrals", h.RegisterReferral)
			internal.POST("/referrals/:id/complete", h.CompleteReferral)
		}
	}

	return r
}
