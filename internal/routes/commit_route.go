package routes

import (
	"net/http"

	"streakd/commons/routes"
	"streakd/internal/dto"
	"streakd/internal/handler"

	"github.com/gin-gonic/gin"
)

func InitCommitRoutes(
	apiV1 *gin.RouterGroup,
	commitHandler *handler.CommitHandler,
	deps routes.RouteDependencies,
) {
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ScheduleCommitRequest, dto.CommitJobResponse]{
			Path:        "/commits",
			Method:      http.MethodPost,
			ServiceFunc: commitHandler.ScheduleCommitService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ScheduleCommitRequest, dto.ImmediateCommitResponse]{
			Path:        "/commits/immediate",
			Method:      http.MethodPost,
			ServiceFunc: commitHandler.ImmediateCommitService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.ListCommitsResponse]{
			Path:        "/commits",
			Method:      http.MethodGet,
			ServiceFunc: commitHandler.ListCommitsService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.CancelCommitResponse]{
			Path:        "/commits/:id/cancel",
			Method:      http.MethodPost,
			ServiceFunc: commitHandler.CancelCommitService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.CommitJobResponse]{
			Path:        "/commits/:id/retry",
			Method:      http.MethodPost,
			ServiceFunc: commitHandler.RetryCommitService,
			RequireUser: true,
		},
	)

	// DELETE /api/v1/commits/pending - drop every pending commit of the user
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.CleanupPendingResponse]{
			Path:        "/commits/pending",
			Method:      http.MethodDelete,
			ServiceFunc: commitHandler.CleanupPendingService,
			RequireUser: true,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.EmptyRequest, dto.SuggestedFilesResponse]{
			Path:        "/files/suggested",
			Method:      http.MethodGet,
			ServiceFunc: commitHandler.SuggestedFilesService,
		},
	)
}
