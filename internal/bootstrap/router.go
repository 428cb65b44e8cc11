package bootstrap

import (
	"net/http"

	"github.com/Domenick1991/fieldbooking/api"
	"github.com/Domenick1991/fieldbooking/config"
	"github.com/Domenick1991/fieldbooking/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Registrar is implemented by every api handler.
type Registrar interface {
	Register(router *gin.RouterGroup)
}

func NewRouter(cfg *config.Config, log zerolog.Logger, handlers ...Registrar) (*gin.Engine, error) {
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	limit, err := middleware.RateLimit(cfg.RateLimit.Rate)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := router.Group("/api", limit, api.SessionMiddleware())
	for _, h := range handlers {
		h.Register(group)
	}
	return router, nil
}
