package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns CORS configuration for the local desktop shell.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			"X-Trace-ID",
			"X-Span-ID",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

// CORSFromOrigins builds a config from a comma-separated origin list, as it
// appears in the server configuration. An empty list means allow all.
func CORSFromOrigins(origins string) CORSConfig {
	cfg := DefaultCORSConfig()
	var parsed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			parsed = append(parsed, o)
		}
	}
	if len(parsed) > 0 {
		cfg.AllowOrigins = parsed
	}
	return cfg
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"
	return cors.New(cors.Config{
		AllowAllOrigins:  allowAll,
		AllowOrigins:     originsUnlessAll(cfg.AllowOrigins, allowAll),
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

// originsUnlessAll returns nil when the wildcard is in effect; gin-contrib
// rejects configs that set both AllowAllOrigins and an origin list.
func originsUnlessAll(origins []string, allowAll bool) []string {
	if allowAll {
		return nil
	}
	return origins
}
