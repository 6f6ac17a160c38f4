package routes

import (
	"net/http"

	"streakd/commons/routes"
	"streakd/internal/dto"
	"streakd/internal/handler"

	"github.com/gin-gonic/gin"
)

// InitSchedulerRoutes registers the operator routes. They act on the whole
// service, not on one user's jobs.
func InitSchedulerRoutes(
	apiV1 *gin.RouterGroup,
	schedulerHandler *handler.SchedulerHandler,
	deps routes.RouteDependencies,
) {
	// GET /api/v1/scheduler - running/enabled flags
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.SchedulerStatusResponse]{
			Path:        "/scheduler",
			Method:      http.MethodGet,
			ServiceFunc: schedulerHandler.StatusService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.SchedulerStatusResponse]{
			Path:        "/scheduler/enable",
			Method:      http.MethodPost,
			ServiceFunc: schedulerHandler.EnableService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.SchedulerStatusResponse]{
			Path:        "/scheduler/disable",
			Method:      http.MethodPost,
			ServiceFunc: schedulerHandler.DisableService,
		},
	)

	// POST /api/v1/scheduler/tick - process due commits now
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.TickResponse]{
			Path:        "/scheduler/tick",
			Method:      http.MethodPost,
			ServiceFunc: schedulerHandler.TickService,
		},
	)

	// POST /api/v1/commits/:id/process - run one commit now
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.ProcessCommitResponse]{
			Path:        "/commits/:id/process",
			Method:      http.MethodPost,
			ServiceFunc: schedulerHandler.ProcessCommitService,
		},
	)
}
