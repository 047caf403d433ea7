package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commudev_backend/internal/config"
	"commudev_backend/internal/model"
	"commudev_backend/internal/testutil"
	"commudev_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret-with-enough-length"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newTestApp(t *testing.T) (*App, *apiClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: "test"},
		JWT:       config.JWTConfig{Secret: testSecret},
		Chat:      config.ChatConfig{TypingWindowSeconds: 5, WSRatePerSecond: 30, WSBurst: 50},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	a := New(cfg, testutil.NewDB(t), nil)
	t.Cleanup(a.Close)
	return a, &apiClient{t: t, router: a.Router}
}

func (c *apiClient) token(u *model.User) string {
	tok, err := util.GenerateJWT(u.ID, u.Username, testSecret, time.Hour)
	require.NoError(c.t, err)
	return tok
}

func (c *apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestFriendFlowOverHTTP(t *testing.T) {
	a, api := newTestApp(t)
	alice := testutil.SeedUser(t, a.DB, "alice")
	bob := testutil.SeedUser(t, a.DB, "bob")
	aliceTok, bobTok := api.token(alice), api.token(bob)

	code, _ := api.do(http.MethodPost, "/api/friends/requests", "", gin.H{"targetUserId": bob.ID})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodPost, "/api/friends/requests", aliceTok, gin.H{"targetUserId": alice.ID})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := api.do(http.MethodPost, "/api/friends/requests", aliceTok, gin.H{"targetUserId": bob.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var req model.FriendRequest
	require.NoError(t, json.Unmarshal(env.Data, &req))
	assert.Equal(t, model.FriendRequestPending, req.Status)

	code, _ = api.do(http.MethodPost, "/api/friends/requests", aliceTok, gin.H{"targetUserId": bob.ID})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(http.MethodPost, "/api/friends/requests/"+req.ID+"/accept", aliceTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = api.do(http.MethodGet, "/api/friends/requests/pending", bobTok, nil)
	require.Equal(t, http.StatusOK, code)
	var pending []model.FriendRequest
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)

	code, _ = api.do(http.MethodPost, "/api/friends/requests/"+req.ID+"/accept", bobTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/friends/"+util.UintToString(bob.ID)+"/status", aliceTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"isFriend":true}`, string(env.Data))

	code, env = api.do(http.MethodGet, "/api/notifications/unread/count", aliceTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))
}

func TestLikeAndChatOverHTTP(t *testing.T) {
	a, api := newTestApp(t)
	owner := testutil.SeedUser(t, a.DB, "owner")
	fan := testutil.SeedUser(t, a.DB, "fan")
	ownerTok, fanTok := api.token(owner), api.token(fan)

	code, env := api.do(http.MethodPost, "/api/posts", ownerTok, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var post model.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))

	code, env = api.do(http.MethodGet, "/api/posts/"+post.ID+"/like", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"liked":false,"likeCount":0}`, string(env.Data))

	code, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/like", fanTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"liked":true,"likeCount":1}`, string(env.Data))

	code, _ = api.do(http.MethodPost, "/api/posts/missing/like", fanTok, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodPost, "/api/chat/conversations", fanTok, gin.H{"targetUserId": owner.ID})
	require.Equal(t, http.StatusOK, code, env.Message)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))

	code, _ = api.do(http.MethodPost, "/api/chat/conversations/"+conv.ID+"/messages", fanTok, gin.H{"text": "thanks for posting"})
	require.Equal(t, http.StatusCreated, code)

	code, env = api.do(http.MethodGet, "/api/chat/conversations/"+conv.ID+"/unread", ownerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))

	code, _ = api.do(http.MethodPost, "/api/chat/conversations/"+conv.ID+"/typing", ownerTok, gin.H{"typing": true})
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/chat/conversations/"+conv.ID+"/typing", fanTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"userIds":[`+util.UintToString(owner.ID)+`]}`, string(env.Data))

	stranger := testutil.SeedUser(t, a.DB, "stranger")
	code, _ = api.do(http.MethodGet, "/api/chat/conversations/"+conv.ID+"/typing", api.token(stranger), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestMyCommentsOverHTTP(t *testing.T) {
	a, api := newTestApp(t)
	owner := testutil.SeedUser(t, a.DB, "owner")
	reader := testutil.SeedUser(t, a.DB, "reader")
	ownerTok, readerTok := api.token(owner), api.token(reader)

	code, env := api.do(http.MethodPost, "/api/posts", ownerTok, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var post model.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))

	code, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", readerTok, gin.H{"content": "nice"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = api.do(http.MethodGet, "/api/comments/mine", readerTok, nil)
	require.Equal(t, http.StatusOK, code)
	var mine []model.Comment
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "nice", mine[0].Content)

	code, env = api.do(http.MethodGet, "/api/comments/mine", ownerTok, nil)
	require.Equal(t, http.StatusOK, code)
	var none []model.Comment
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &none))
	}
	assert.Empty(t, none)

	code, _ = api.do(http.MethodGet, "/api/comments/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthEndpoint(t *testing.T) {
	_, api := newTestApp(t)
	code, env := api.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","components":{"database":"up","redis":"disabled"}}`, string(env.Data))
}
