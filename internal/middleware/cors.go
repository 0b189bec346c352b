package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

// CORS answers preflight requests. An empty origin list or "*" allows any
// origin; credentials are only allowed for explicit origins.
func CORS(config CORSConfig) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderXRequestID, "X-API-Version"},
		MaxAge:        config.MaxAge,
	}

	allowAll := len(config.AllowedOrigins) == 0
	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = config.AllowedOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
