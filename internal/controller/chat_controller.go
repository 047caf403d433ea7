package controller

import (
	"commudev_backend/internal/service"
	"commudev_backend/internal/util"
	"context"
	"slices"

	"github.com/gin-gonic/gin"
)

// ChatController serves conversations, messages and typing over HTTP and
// mirrors committed changes to the websocket hub.
type ChatController struct {
	ChatService *service.ChatService
	Hub         *service.ChatHub
}

type CreateConversationRequest struct {
	TargetUserID uint `json:"targetUserId" binding:"required" example:"2"`
}

type MessageRequest struct {
	Text string `json:"text" binding:"required,max=4000" example:"hi"`
}

type TypingRequest struct {
	Typing *bool `json:"typing" binding:"required" example:"true"`
}

func NewChatController(chatService *service.ChatService, hub *service.ChatHub) *ChatController {
	return &ChatController{ChatService: chatService, Hub: hub}
}

func (ctrl *ChatController) push(ctx context.Context, convID string, actorID uint, msg service.WSMessage) {
	if ctrl.Hub == nil {
		return
	}
	ctrl.Hub.PushToConversation(ctx, convID, actorID, msg)
}

// HandleWS godoc
// @Summary Websocket for realtime chat events
// @Tags Chat
// @Security ApiKeyAuth
// @Param   token query string true "JWT"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/chat/ws [get]
func (ctrl *ChatController) HandleWS(c *gin.Context) {
	userID := util.CallerID(c)
	if userID == 0 {
		util.Unauthorized(c)
		return
	}
	service.ServeWs(ctrl.Hub, c.Writer, c.Request, userID)
}

// @Summary Open (or reuse) the conversation with another user
// @Tags Chat
// @Security ApiKeyAuth
// @Param   request body CreateConversationRequest true "other user"
// @Router /api/chat/conversations [post]
func (ctrl *ChatController) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	conv, err := ctrl.ChatService.GetOrCreateConversation(c.Request.Context(), util.CallerID(c), req.TargetUserID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, conv)
}

func (ctrl *ChatController) ListConversations(c *gin.Context) {
	list, err := ctrl.ChatService.ListConversations(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, list)
}

func (ctrl *ChatController) ListMessages(c *gin.Context) {
	msgs, err := ctrl.ChatService.ListMessages(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, msgs)
}

// SendMessage godoc
// @Summary Send a message
// @Tags Chat
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "conversation id"
// @Param   request body MessageRequest true "message"
// @Success 201 {object} util.Response{data=model.Message}
// @Failure 403 {object} util.Response "not a participant"
// @Router /api/chat/conversations/{id}/messages [post]
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	callerID := util.CallerID(c)

	msg, err := ctrl.ChatService.SendMessage(ctx, c.Param("id"), callerID, req.Text)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	ctrl.push(ctx, msg.ConversationID, callerID, service.WSMessage{Type: util.EventNewMessage, Data: msg})
	util.Created(c, msg)
}

func (ctrl *ChatController) MarkRead(c *gin.Context) {
	n, err := ctrl.ChatService.MarkRead(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"updated": n})
}

func (ctrl *ChatController) UnreadCount(c *gin.Context) {
	n, err := ctrl.ChatService.UnreadCount(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"count": n})
}

func (ctrl *ChatController) EditMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	callerID := util.CallerID(c)

	msg, err := ctrl.ChatService.EditMessage(ctx, c.Param("id"), callerID, req.Text)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	ctrl.push(ctx, msg.ConversationID, callerID, service.WSMessage{Type: util.EventMessageUpdated, Data: msg})
	util.Success(c, msg)
}

func (ctrl *ChatController) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()
	callerID := util.CallerID(c)

	msg, err := ctrl.ChatService.DeleteMessage(ctx, c.Param("id"), callerID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	ctrl.push(ctx, msg.ConversationID, callerID, service.WSMessage{
		Type: util.EventMessageDeleted,
		Data: gin.H{"id": msg.ID, "conversationId": msg.ConversationID},
	})
	util.Success(c, nil)
}

// SetTyping is the HTTP twin of the websocket TYPING frame.
func (ctrl *ChatController) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	convID := c.Param("id")
	callerID := util.CallerID(c)

	if err := ctrl.ChatService.SetTyping(ctx, convID, callerID, *req.Typing); err != nil {
		util.HandleError(c, err)
		return
	}
	ctrl.push(ctx, convID, callerID, service.WSMessage{
		Type: util.EventTyping,
		Data: service.TypingEvent{ConversationID: convID, UserID: callerID, Typing: *req.Typing},
	})
	util.Success(c, nil)
}

func (ctrl *ChatController) TypingUsers(c *gin.Context) {
	ctx := c.Request.Context()
	convID := c.Param("id")

	members, err := ctrl.ChatService.ParticipantIDs(ctx, convID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	if !slices.Contains(members, util.CallerID(c)) {
		util.HandleError(c, util.ErrNotParticipant)
		return
	}

	ids, err := ctrl.ChatService.GetTypingUsers(ctx, convID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"userIds": ids})
}

func (ctrl *ChatController) DeleteConversation(c *gin.Context) {
	if err := ctrl.ChatService.DeleteConversation(c.Request.Context(), c.Param("id"), util.CallerID(c)); err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, nil)
}
