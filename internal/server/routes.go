package server

import (
	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/cropguard/internal/api"
	"github.com/cozy-creator/cropguard/internal/app"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/", handlerWrapper(app, api.Root))
	s.ginEngine.POST("/predict", handlerWrapper(app, api.Predict))

	s.ginEngine.GET("/healthz", handlerWrapper(app, api.Healthz))
	s.ginEngine.GET("/labels", handlerWrapper(app, api.Labels))
	s.ginEngine.GET("/metrics", handlerWrapper(app, api.Metrics))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
