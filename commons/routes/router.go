package routes

import (
	"net/http"

	"streakd/commons/handler"
	"streakd/internal/logger"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	ServiceName string
	Version     string
	// Mode is a gin mode; release when empty
	Mode string
}

type RouteDependencies struct {
	Logger logger.Logger
}

type RouteOptions[InputDto any, OutputDto any] struct {
	Path        string
	Method      string
	ServiceFunc handler.ServiceFunc[InputDto, OutputDto]
	// RequireUser rejects the request with 401 unless X-User-ID is present
	RequireUser bool
}

func NewRouter(config RouterConfig, deps RouteDependencies) *gin.Engine {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Add global middlewares
	r.Use(handler.RequestIDMiddleware())
	r.Use(handler.LoggingMiddleware(deps.Logger.With(logger.String("service", config.ServiceName))))
	r.Use(handler.ErrorHandlingMiddleware(deps.Logger))
	r.Use(handler.CORSMiddleware())

	// Set custom handlers for routing errors
	r.NoRoute(handler.NoRouteHandler())
	r.NoMethod(handler.NoMethodHandler())

	return r
}

func RegisterRoute[InputDto any, OutputDto any](
	group gin.IRouter,
	deps RouteDependencies,
	options RouteOptions[InputDto, OutputDto],
) {
	handlerDeps := handler.HandlerDependencies{
		Logger: deps.Logger,
	}

	chain := []gin.HandlerFunc{}
	if options.RequireUser {
		chain = append(chain, handler.RequireUserMiddleware())
	}
	chain = append(chain, handler.HandleFunc(handlerDeps, options.ServiceFunc))

	switch options.Method {
	case http.MethodGet:
		group.GET(options.Path, chain...)
	case http.MethodPost:
		group.POST(options.Path, chain...)
	case http.MethodPut:
		group.PUT(options.Path, chain...)
	case http.MethodDelete:
		group.DELETE(options.Path, chain...)
	case http.MethodPatch:
		group.PATCH(options.Path, chain...)
	default:
		deps.Logger.Error("unsupported HTTP method",
			logger.String("method", options.Method),
			logger.String("path", options.Path))
	}
}

func CreateAPIGroup(router *gin.Engine, version string) *gin.RouterGroup {
	return router.Group("/api/" + version)
}
