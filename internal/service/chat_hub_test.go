package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"commudev_backend/internal/config"
	"commudev_backend/internal/util"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, env *testEnv) (*ChatHub, func(userID uint) *websocket.Conn) {
	t.Helper()
	cfg := &config.Config{Chat: config.ChatConfig{WSRatePerSecond: 100, WSBurst: 100}}
	hub := NewChatHub(cfg, nil, env.chat, env.friends.FriendRepo)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, util.MustParseUint(r.URL.Query().Get("uid")))
	}))
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})

	dial := func(userID uint) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.FormatUint(uint64(userID), 10)
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		require.Eventually(t, func() bool { return hub.isLocal(userID) }, 2*time.Second, 10*time.Millisecond)
		return conn
	}
	return hub, dial
}

func readFrame(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHubRelaysTypingFrames(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	conv, err := env.chat.GetOrCreateConversation(env.ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, dial := startHub(t, env)
	bobConn := dial(bob.ID)
	aliceConn := dial(alice.ID)

	require.NoError(t, aliceConn.WriteJSON(map[string]interface{}{
		"type": util.EventTyping,
		"data": map[string]interface{}{"conversationId": conv.ID, "typing": true},
	}))

	var frame struct {
		Type string      `json:"type"`
		Data TypingEvent `json:"data"`
	}
	readFrame(t, bobConn, &frame)
	assert.Equal(t, util.EventTyping, frame.Type)
	assert.Equal(t, TypingEvent{ConversationID: conv.ID, UserID: alice.ID, Typing: true}, frame.Data)

	typing, err := env.chat.GetTypingUsers(env.ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, typing)
}

func TestHubPushesToConversationPeers(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")
	conv, err := env.chat.GetOrCreateConversation(env.ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	hub, dial := startHub(t, env)
	bobConn := dial(bob.ID)

	msg, err := env.chat.SendMessage(env.ctx, conv.ID, alice.ID, "ping")
	require.NoError(t, err)
	hub.PushToConversation(env.ctx, conv.ID, alice.ID, WSMessage{Type: util.EventNewMessage, Data: msg})

	var frame struct {
		Type string `json:"type"`
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	readFrame(t, bobConn, &frame)
	assert.Equal(t, util.EventNewMessage, frame.Type)
	assert.Equal(t, msg.ID, frame.Data.ID)
	assert.Equal(t, "ping", frame.Data.Text)

	assert.True(t, hub.IsUserOnline(bob.ID))
	assert.False(t, hub.IsUserOnline(alice.ID))
}
