// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carpool/internal/http/handlers"
	"carpool/internal/http/middleware"
)

type RouterDeps struct {
	Conversation handlers.ConversationService
	Rides        handlers.RideFinder
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics())

	eventHandler := handlers.NewEventHandler(deps.Conversation)
	r.POST("/api/events/text", eventHandler.Text)
	r.POST("/api/events/location", eventHandler.Location)

	rideHandler := handlers.NewRideHandler(deps.Rides)
	r.GET("/api/requests/:requester", rideHandler.Get)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
