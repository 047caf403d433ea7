package service

import (
	"commudev_backend/internal/config"
	"commudev_backend/internal/repository"
	"commudev_backend/internal/util"
	"commudev_backend/pkg/logger"
	"commudev_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute
	hubChannel     = "social:chat:events"
)

var framePool = sync.Pool{
	New: func() interface{} {
		return &inboundFrame{}
	},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("social:online:%d", userID)
}

// WSMessage is the envelope of every frame pushed to clients.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type typingFrame struct {
	ConversationID string `json:"conversationId"`
	Typing         *bool  `json:"typing"`
}

// TypingEvent is the payload of a TYPING push.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         uint   `json:"userId"`
	Typing         bool   `json:"typing"`
}

type Client struct {
	Hub     *ChatHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("websocket closed unexpectedly", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			monitoring.IMMessageCounter.WithLabelValues("throttled", "in").Inc()
			continue
		}

		frame := framePool.Get().(*inboundFrame)
		*frame = inboundFrame{}
		if err := json.Unmarshal(message, frame); err != nil {
			framePool.Put(frame)
			continue
		}
		monitoring.IMMessageCounter.WithLabelValues(frame.Type, "in").Inc()

		if frame.Type == util.EventTyping {
			c.Hub.handleTyping(c.UserID, frame.Data)
		}
		framePool.Put(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

type statusUpdate struct {
	userID uint
	status string
}

// ChatHub keeps one websocket per user on this instance and delivers realtime
// events to participants. With redis configured, pushes travel over pub/sub
// so every instance delivers to its own clients; without it delivery is local.
type ChatHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	Redis      *redis.Client
	Chat       *ChatService
	FriendRepo *repository.FriendshipRepository

	rateLimit rate.Limit
	burst     int
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewChatHub(cfg *config.Config, rdb *redis.Client, chat *ChatService, friendRepo *repository.FriendshipRepository) *ChatHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ChatHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		Redis:      rdb,
		Chat:       chat,
		FriendRepo: friendRepo,
		rateLimit:  rate.Limit(cfg.Chat.WSRatePerSecond),
		burst:      cfg.Chat.WSBurst,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[uint]*Client)}
	}
	return h
}

func (h *ChatHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type pubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *ChatHub) subscribe() {
	pubsub := h.Redis.Subscribe(h.ctx, hubChannel)
	go func() {
		defer pubsub.Close()
		for msg := range pubsub.Channel() {
			var ps pubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
				logger.Log.Error("hub pubsub decode failed", zap.Error(err))
				continue
			}
			h.pushLocal(ps.TargetUsers, ps.Payload)
		}
	}()
}

// Run owns client registration until Stop is called.
func (h *ChatHub) Run() {
	if h.Redis != nil {
		h.subscribe()
	}

	flush := time.NewTicker(500 * time.Millisecond)
	heartbeat := time.NewTicker(time.Minute)
	defer func() {
		flush.Stop()
		heartbeat.Stop()
	}()

	var pending []statusUpdate
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if old, ok := s.clients[client.UserID]; ok {
				close(old.Send)
			} else {
				monitoring.IMOnlineUsers.Inc()
			}
			s.clients[client.UserID] = client
			s.mu.Unlock()
			pending = append(pending, statusUpdate{client.UserID, "online"})

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			cur, ok := s.clients[client.UserID]
			if ok && cur == client {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.IMOnlineUsers.Dec()
			}
			s.mu.Unlock()
			if ok && cur == client {
				pending = append(pending, statusUpdate{client.UserID, "offline"})
			}

		case <-heartbeat.C:
			h.refreshOnline()

		case <-flush.C:
			if len(pending) == 0 {
				continue
			}
			h.flushStatus(pending)
			pending = pending[:0]
		}
	}
}

func (h *ChatHub) flushStatus(updates []statusUpdate) {
	if h.Redis != nil {
		pipe := h.Redis.Pipeline()
		for _, u := range updates {
			if u.status == "online" {
				pipe.Set(h.ctx, onlineKey(u.userID), "true", onlineTTL)
			} else {
				pipe.Del(h.ctx, onlineKey(u.userID))
			}
		}
		if _, err := pipe.Exec(h.ctx); err != nil {
			logger.Log.Error("online status flush failed", zap.Error(err))
		}
	}
	for _, u := range updates {
		h.notifyStatus(u.userID, u.status)
	}
}

func (h *ChatHub) refreshOnline() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for _, s := range h.shards {
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, onlineKey(userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		if _, err := pipe.Exec(h.ctx); err != nil {
			logger.Log.Warn("online status refresh failed", zap.Error(err))
		}
	}
}

// notifyStatus tells the user's friends that the user came online or left.
func (h *ChatHub) notifyStatus(userID uint, status string) {
	if h.FriendRepo == nil {
		return
	}
	ids, err := h.FriendRepo.GetFriendIDsCached(h.ctx, userID)
	if err != nil {
		logger.Log.Warn("status fan-out skipped", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	h.PushToUsers(ids, WSMessage{
		Type: util.EventUserStatus,
		Data: map[string]interface{}{"userId": userID, "status": status},
	})
}

func (h *ChatHub) handleTyping(userID uint, raw json.RawMessage) {
	var frame typingFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.ConversationID == "" {
		return
	}
	typing := true
	if frame.Typing != nil {
		typing = *frame.Typing
	}
	if err := h.Chat.SetTyping(h.ctx, frame.ConversationID, userID, typing); err != nil {
		logger.Log.Debug("typing frame rejected",
			zap.Uint("userId", userID),
			zap.String("conversationId", frame.ConversationID),
			zap.Error(err))
		return
	}
	h.PushToConversation(h.ctx, frame.ConversationID, userID, WSMessage{
		Type: util.EventTyping,
		Data: TypingEvent{ConversationID: frame.ConversationID, UserID: userID, Typing: typing},
	})
}

// PushToConversation delivers msg to every participant except the actor.
func (h *ChatHub) PushToConversation(ctx context.Context, convID string, actorID uint, msg WSMessage) {
	ids, err := h.Chat.ParticipantIDs(ctx, convID)
	if err != nil {
		logger.Log.Warn("participant lookup failed", zap.String("conversationId", convID), zap.Error(err))
		return
	}
	targets := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != actorID {
			targets = append(targets, id)
		}
	}
	if len(targets) > 0 {
		h.PushToUsers(targets, msg)
	}
}

func (h *ChatHub) PushToUsers(userIDs []uint, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("hub encode failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	monitoring.IMMessageCounter.WithLabelValues(msg.Type, "out").Inc()

	if h.Redis != nil {
		envelope, _ := json.Marshal(pubSubMessage{TargetUsers: userIDs, Payload: payload})
		err := h.Redis.Publish(h.ctx, hubChannel, envelope).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("hub publish failed, delivering locally", zap.Error(err))
	}
	h.pushLocal(userIDs, payload)
}

func (h *ChatHub) pushLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
				logger.Log.Debug("client send buffer full, frame dropped", zap.Uint("userId", id))
			}
		}
		s.mu.RUnlock()
	}
}

func (h *ChatHub) isLocal(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	return ok
}

func (h *ChatHub) IsUserOnline(userID uint) bool {
	if h.isLocal(userID) {
		return true
	}
	if h.Redis == nil {
		return false
	}
	val, err := h.Redis.Get(h.ctx, onlineKey(userID)).Result()
	return err == nil && val == "true"
}

func (h *ChatHub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *ChatHub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Stop closes every local connection and clears their online keys.
func (h *ChatHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		var userIDs []uint
		for _, s := range h.shards {
			s.mu.Lock()
			for userID, client := range s.clients {
				userIDs = append(userIDs, userID)
				close(client.Send)
				delete(s.clients, userID)
			}
			s.mu.Unlock()
		}

		if h.Redis != nil && len(userIDs) > 0 {
			pipe := h.Redis.Pipeline()
			for _, id := range userIDs {
				pipe.Del(h.ctx, onlineKey(id))
			}
			if _, err := pipe.Exec(h.ctx); err != nil {
				logger.Log.Warn("online status cleanup failed", zap.Error(err))
			}
		}
		h.cancel()

		monitoring.IMOnlineUsers.Set(0)
		logger.Log.Info("chat hub stopped", zap.Int("closedConnections", len(userIDs)))
	})
}

func ServeWs(hub *ChatHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	limit, burst := hub.rateLimit, hub.burst
	if limit <= 0 {
		limit = rate.Limit(30)
	}
	if burst <= 0 {
		burst = 50
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(limit, burst),
	}
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
