package route

import (
	"context"
	"net/http"
	"strings"
	"time"

	"focusgallery/controller"
	mw "focusgallery/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const APIPrefix = "/api/v1"

type Options struct {
	APIKey      string
	CORSOrigins []string // empty allows any http(s) origin
	RateLimit   int      // requests per client IP per minute, 0 disables
}

// New assembles the gin engine serving the gallery API.
func New(ctx context.Context, gallery *controller.Gallery, opts Options) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(gin.Recovery(), mw.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin(opts.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	if opts.RateLimit > 0 {
		rateLimit := mw.NewRateLimiter(ctx, opts.RateLimit, time.Minute)
		router.Use(rateLimit.Middleware())
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Focus Gallery API is running"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group(APIPrefix)
	Unprotected(api, gallery)
	Protected(api, gallery, opts.APIKey)

	return router
}

func allowOrigin(origins []string) func(string) bool {
	return func(origin string) bool {
		if len(origins) == 0 {
			return strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")
		}
		for _, allowed := range origins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
}
