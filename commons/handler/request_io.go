package handler

import (
	"net/http"
	"strings"

	"streakd/internal/logger"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller's user id. Authenticating it happens upstream.
const UserIDHeader = "X-User-ID"

type RequestIo[T any] struct {
	Body        T
	RawBody     []byte
	PathParams  map[string]string
	QueryParams map[string]string
	// Headers is keyed by canonical header name
	Headers map[string]string
}

type HandlerDependencies struct {
	Logger logger.Logger
}

func BuildRequestIo[T any](c *gin.Context) *RequestIo[T] {
	return &RequestIo[T]{
		PathParams:  extractPathParams(c),
		QueryParams: extractQueryParams(c),
		Headers:     extractHeaders(c),
	}
}

// Header looks a header up by any spelling of its name
func (r *RequestIo[T]) Header(name string) string {
	return strings.TrimSpace(r.Headers[http.CanonicalHeaderKey(name)])
}

// UserID is the trimmed X-User-ID header, empty when absent
func (r *RequestIo[T]) UserID() string {
	return r.Header(UserIDHeader)
}

func extractPathParams(c *gin.Context) map[string]string {
	params := make(map[string]string, len(c.Params))
	for _, param := range c.Params {
		params[param.Key] = param.Value
	}
	return params
}

func extractQueryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func extractHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[http.CanonicalHeaderKey(key)] = values[0]
		}
	}
	return headers
}
