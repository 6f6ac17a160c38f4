package routes

import (
	"net/http"

	"streakd/commons/routes"
	"streakd/internal/dto"
	"streakd/internal/handler"

	"github.com/gin-gonic/gin"
)

func InitHealthRoutes(
	apiV1 *gin.RouterGroup,
	healthHandler *handler.HealthHandler,
	deps routes.RouteDependencies,
) {
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.HealthCheckResponse]{
			Path:        "/health",
			Method:      http.MethodGet,
			ServiceFunc: healthHandler.HealthService,
		},
	)
}
