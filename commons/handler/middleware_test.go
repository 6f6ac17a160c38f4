package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"streakd/commons/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", RequireUserMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetHeader(UserIDHeader))
	})
	return r
}

func TestRequireUserMiddleware(t *testing.T) {
	r := newTestEngine()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body response.StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, response.StatusFailed, body.Status)
	assert.Equal(t, "Missing user id", body.Message)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("x-user-id", "u1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIoUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("x-user-id", " u7 ")

	io := BuildRequestIo[struct{}](c)
	assert.Equal(t, "u7", io.UserID())
}
