package controller

import (
	"commudev_backend/internal/service"
	"commudev_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommunityController struct {
	CommunityService *service.CommunityService
}

type CreatePostRequest struct {
	Content string `json:"content" binding:"required,max=10000" example:"Hello community"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=2000" example:"Nice post"`
}

func NewCommunityController(communityService *service.CommunityService) *CommunityController {
	return &CommunityController{CommunityService: communityService}
}

func (ctrl *CommunityController) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	post, err := ctrl.CommunityService.CreatePost(c.Request.Context(), util.CallerID(c), req.Content)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Created(c, post)
}

// GetPost returns the post with the caller's like state; anonymous callers
// read liked=false.
func (ctrl *CommunityController) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := ctrl.CommunityService.GetPost(ctx, c.Param("id"))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{
		"post":  post,
		"liked": ctrl.CommunityService.HasLiked(ctx, post.ID, util.CallerID(c)),
	})
}

// ToggleLike godoc
// @Summary Like or unlike a post
// @Description Flips the caller's like and returns the state read back after the change.
// @Tags Community
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "post id"
// @Success 200 {object} util.Response{data=model.LikeStatus}
// @Router /api/posts/{id}/like [post]
func (ctrl *CommunityController) ToggleLike(c *gin.Context) {
	status, err := ctrl.CommunityService.ToggleLike(c.Request.Context(), c.Param("id"), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, status)
}

// @Summary Like state of a post for the caller
// @Tags Community
// @Param   id path string true "post id"
// @Router /api/posts/{id}/like [get]
func (ctrl *CommunityController) LikeStatus(c *gin.Context) {
	util.Success(c, ctrl.CommunityService.GetLikeStatus(c.Request.Context(), c.Param("id"), util.CallerID(c)))
}

func (ctrl *CommunityController) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	comments, err := ctrl.CommunityService.ListComments(ctx, c.Param("id"))
	if err != nil {
		util.HandleError(c, err)
		return
	}

	callerID := util.CallerID(c)
	items := make([]gin.H, 0, len(comments))
	for i := range comments {
		items = append(items, gin.H{
			"comment": comments[i],
			"canEdit": ctrl.CommunityService.CanModifyComment(ctx, comments[i].ID, callerID),
		})
	}
	util.Success(c, items)
}

// @Summary Comments written by the caller, newest first
// @Tags Community
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Comment}
// @Router /api/comments/mine [get]
func (ctrl *CommunityController) ListMyComments(c *gin.Context) {
	comments, err := ctrl.CommunityService.ListMyComments(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, comments)
}

func (ctrl *CommunityController) CreateComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	comment, err := ctrl.CommunityService.CreateComment(c.Request.Context(), c.Param("id"), util.CallerID(c), req.Content)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Created(c, comment)
}

func (ctrl *CommunityController) UpdateComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	comment, err := ctrl.CommunityService.UpdateComment(c.Request.Context(), c.Param("id"), util.CallerID(c), req.Content)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, comment)
}

func (ctrl *CommunityController) DeleteComment(c *gin.Context) {
	if err := ctrl.CommunityService.DeleteComment(c.Request.Context(), c.Param("id"), util.CallerID(c)); err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, nil)
}
