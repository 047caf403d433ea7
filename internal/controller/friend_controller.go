package controller

import (
	"commudev_backend/internal/service"
	"commudev_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendController struct {
	FriendshipService *service.FriendshipService
}

type SendFriendRequestRequest struct {
	TargetUserID uint `json:"targetUserId" binding:"required" example:"2"`
}

func NewFriendController(friendshipService *service.FriendshipService) *FriendController {
	return &FriendController{FriendshipService: friendshipService}
}

// SendRequest godoc
// @Summary Send a friend request
// @Description Opens a request to the target user. A pending request in the other direction is accepted instead.
// @Tags Friends
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body SendFriendRequestRequest true "target user"
// @Success 201 {object} util.Response{data=model.FriendRequest}
// @Failure 409 {object} util.Response "already friends or request pending"
// @Router /api/friends/requests [post]
func (ctrl *FriendController) SendRequest(c *gin.Context) {
	var req SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	fr, err := ctrl.FriendshipService.SendRequest(c.Request.Context(), util.CallerID(c), req.TargetUserID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Created(c, fr)
}

// @Summary Pending requests received by the caller
// @Tags Friends
// @Security ApiKeyAuth
// @Router /api/friends/requests/pending [get]
func (ctrl *FriendController) ListPending(c *gin.Context) {
	reqs, err := ctrl.FriendshipService.ListPending(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, reqs)
}

func (ctrl *FriendController) ListSent(c *gin.Context) {
	reqs, err := ctrl.FriendshipService.ListSent(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, reqs)
}

// @Summary Accept a friend request
// @Tags Friends
// @Security ApiKeyAuth
// @Param   id path string true "request id"
// @Router /api/friends/requests/{id}/accept [post]
func (ctrl *FriendController) Accept(c *gin.Context) {
	fr, err := ctrl.FriendshipService.Accept(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, fr)
}

// @Summary Reject a friend request
// @Tags Friends
// @Security ApiKeyAuth
// @Param   id path string true "request id"
// @Router /api/friends/requests/{id}/reject [post]
func (ctrl *FriendController) Reject(c *gin.Context) {
	fr, err := ctrl.FriendshipService.Reject(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, fr)
}

func (ctrl *FriendController) ListFriends(c *gin.Context) {
	users, err := ctrl.FriendshipService.ListFriends(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, users)
}

// Status reports whether the caller and :userId are friends.
func (ctrl *FriendController) Status(c *gin.Context) {
	otherID := util.MustParseUint(c.Param("userId"))
	if otherID == 0 {
		util.BadRequest(c, "invalid user id")
		return
	}
	ok, err := ctrl.FriendshipService.IsFriend(c.Request.Context(), util.CallerID(c), otherID)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"isFriend": ok})
}

// @Summary Remove a friend
// @Tags Friends
// @Security ApiKeyAuth
// @Param   userId path int true "friend's user id"
// @Router /api/friends/{userId} [delete]
func (ctrl *FriendController) Remove(c *gin.Context) {
	otherID := util.MustParseUint(c.Param("userId"))
	if otherID == 0 {
		util.BadRequest(c, "invalid user id")
		return
	}
	if err := ctrl.FriendshipService.RemoveFriend(c.Request.Context(), util.CallerID(c), otherID); err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, nil)
}
