package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commudev_backend/internal/config"
	"commudev_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": util.CallerID(c), "key": UserKey(c)})
	})
	return r
}

func doRequest(r http.Handler, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := newRouter(AuthMiddleware(cfg))

	token, err := util.GenerateJWT(7, "alice", testSecret, time.Hour)
	require.NoError(t, err)

	w := doRequest(r, "/whoami", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"key":"user:7"}`, w.Body.String())

	w = doRequest(r, "/whoami?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/whoami", "").Code)

	forged, err := util.GenerateJWT(7, "alice", "some-other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/whoami", "Bearer "+forged).Code)

	expired, err := util.GenerateJWT(7, "alice", testSecret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "/whoami", "Bearer "+expired).Code)
}

func TestTryAuthMiddlewareAllowsAnonymous(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := newRouter(TryAuthMiddleware(cfg))

	w := doRequest(r, "/whoami", "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":0`)

	token, err := util.GenerateJWT(3, "bob", testSecret, time.Hour)
	require.NoError(t, err)
	w = doRequest(r, "/whoami", "Bearer "+token)
	assert.JSONEq(t, `{"id":3,"key":"user:3"}`, w.Body.String())
}
