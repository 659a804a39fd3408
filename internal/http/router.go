// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taxisync/internal/http/handlers"
	"taxisync/internal/http/middleware"
)

// SnapshotProvider is the telemetry aggregator as the router needs it.
type SnapshotProvider interface {
	handlers.SnapshotSource
	handlers.Readiness
}

type RouterDeps struct {
	Bookings handlers.BookingService
	Vehicles SnapshotProvider
	Logger   *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(deps.Logger), middleware.Recovery(deps.Logger))

	r.GET("/healthz", handlers.Healthz)
	r.GET("/readyz", handlers.Readyz(deps.Vehicles))

	api := r.Group("/api")

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	api.POST("/bookings", bookingHandler.Submit)
	api.POST("/bookings/bulk", bookingHandler.SubmitMany)
	api.POST("/bookings/cancel", bookingHandler.CancelMany)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.PATCH("/bookings/:id", bookingHandler.Update)
	api.DELETE("/bookings/:id", bookingHandler.Cancel)
	api.POST("/quotes", bookingHandler.Quote)

	vehicleHandler := handlers.NewVehicleHandler(deps.Vehicles)
	api.GET("/vehicles", vehicleHandler.List)
	api.GET("/vehicles/nearby", vehicleHandler.Nearby)
	api.GET("/vehicles/:callsign", vehicleHandler.Get)

	return r
}
