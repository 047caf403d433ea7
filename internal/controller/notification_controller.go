package controller

import (
	"commudev_backend/internal/service"
	"commudev_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

func parseNotificationID(c *gin.Context) (uint, bool) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid notification id")
		return 0, false
	}
	return id, true
}

// @Summary All notifications of the caller, newest first
// @Tags Notifications
// @Security ApiKeyAuth
// @Router /api/notifications [get]
func (ctrl *NotificationController) List(c *gin.Context) {
	notes, err := ctrl.NotificationService.ListAll(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, notes)
}

func (ctrl *NotificationController) ListUnread(c *gin.Context) {
	notes, err := ctrl.NotificationService.ListUnread(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, notes)
}

func (ctrl *NotificationController) UnreadCount(c *gin.Context) {
	count, err := ctrl.NotificationService.CountUnread(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"count": count})
}

// @Summary Mark one notification read
// @Tags Notifications
// @Security ApiKeyAuth
// @Param   id path int true "notification id"
// @Router /api/notifications/{id}/read [put]
func (ctrl *NotificationController) MarkRead(c *gin.Context) {
	id, ok := parseNotificationID(c)
	if !ok {
		return
	}
	n, err := ctrl.NotificationService.MarkRead(c.Request.Context(), id, util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, n)
}

func (ctrl *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := ctrl.NotificationService.MarkAllRead(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"updated": n})
}

func (ctrl *NotificationController) Delete(c *gin.Context) {
	id, ok := parseNotificationID(c)
	if !ok {
		return
	}
	if err := ctrl.NotificationService.DeleteOne(c.Request.Context(), id, util.CallerID(c)); err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, nil)
}

func (ctrl *NotificationController) DeleteAll(c *gin.Context) {
	n, err := ctrl.NotificationService.DeleteAll(c.Request.Context(), util.CallerID(c))
	if err != nil {
		util.HandleError(c, err)
		return
	}
	util.Success(c, gin.H{"deleted": n})
}
