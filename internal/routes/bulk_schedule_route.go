package routes

import (
	"net/http"

	"streakd/commons/routes"
	"streakd/internal/dto"
	"streakd/internal/handler"

	"github.com/gin-gonic/gin"
)

func InitBulkScheduleRoutes(
	apiV1 *gin.RouterGroup,
	bulkHandler *handler.BulkScheduleHandler,
	deps routes.RouteDependencies,
) {
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.CreateBulkScheduleRequest, dto.CreateBulkScheduleResponse]{
			Path:        "/bulk-schedules",
			Method:      http.MethodPost,
			ServiceFunc: bulkHandler.CreateBulkScheduleService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.ListBulkSchedulesResponse]{
			Path:        "/bulk-schedules",
			Method:      http.MethodGet,
			ServiceFunc: bulkHandler.ListBulkSchedulesService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.CancelBulkScheduleResponse]{
			Path:        "/bulk-schedules/:id/cancel",
			Method:      http.MethodPost,
			ServiceFunc: bulkHandler.CancelBulkScheduleService,
			RequireUser: true,
		},
	)
}
