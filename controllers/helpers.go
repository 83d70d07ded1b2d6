package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/services"

	"github.com/gin-gonic/gin"
)

func currentUser(c *gin.Context) (models.CurrentUser, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.CurrentUser{}, false
	}
	return user, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStorageFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes a workflow error as {"error": reason}. Server-side
// failures are logged and answered with the bare status text.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	msg := services.Reason(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg})
}

func queryLimit(c *gin.Context, fallback, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil || v <= 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
