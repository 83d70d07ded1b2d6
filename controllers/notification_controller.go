package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"manuscript-review-api/store"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notifications store.NotificationRepository
}

func NewNotificationController(notifications store.NotificationRepository) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (n *NotificationController) GetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	unread := strings.TrimSpace(c.Query("unread"))
	unreadOnly := unread == "1" || strings.EqualFold(unread, "true")
	limit := queryLimit(c, 20, 100)

	items, err := n.notifications.ListNotifications(c.Request.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (n *NotificationController) MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := n.notifications.MarkNotificationRead(c.Request.Context(), user.ID, uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
