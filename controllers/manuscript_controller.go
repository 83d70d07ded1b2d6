package controllers

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"manuscript-review-api/models"
	"manuscript-review-api/services"
	"manuscript-review-api/utils"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 50 << 20

// ManuscriptController exposes the review workflow over HTTP.
type ManuscriptController struct {
	service *services.ManuscriptService
	files   services.FileStorage
}

func NewManuscriptController(service *services.ManuscriptService, files services.FileStorage) *ManuscriptController {
	return &ManuscriptController{service: service, files: files}
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type assignReviewerRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
}

type extendDeadlineRequest struct {
	Deadline time.Time `json:"deadline"`
}

type decisionRequest struct {
	Decision models.ReviewingDecision `json:"decision" binding:"required"`
}

// storeUpload saves the multipart "file" field under dir. required=false
// returns an empty path when no file was sent.
func (mc *ManuscriptController) storeUpload(c *gin.Context, dir string, required bool) (string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if !required {
			return "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", false
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 50 MB limit"})
		return "", false
	}
	if !services.AllowedUploadType(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
		return "", false
	}

	path, err := mc.saveFile(c.Request.Context(), dir, header)
	if err != nil {
		log.Printf("[upload] failed to store %s: %v", header.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return "", false
	}
	return path, true
}

func (mc *ManuscriptController) saveFile(ctx context.Context, dir string, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return mc.files.Upload(ctx, dir, header.Filename, f)
}

// discardUpload removes a stored file whose workflow write was refused.
func (mc *ManuscriptController) discardUpload(path string) {
	if path == "" {
		return
	}
	if err := mc.files.Delete(path); err != nil {
		log.Printf("[upload] failed to remove orphaned file %s: %v", path, err)
	}
}

func (mc *ManuscriptController) ListManuscripts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	statuses, err := utils.ParseStatusList(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	views, next, err := mc.service.ListManuscriptViews(c.Request.Context(), user, statuses, queryLimit(c, 50, 200), c.Query("cursor"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views, "next_cursor": next})
}

func (mc *ManuscriptController) CreateManuscript(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if strings.TrimSpace(c.PostForm("title")) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	path, ok := mc.storeUpload(c, "submissions/"+user.ID, true)
	if !ok {
		return
	}
	m, err := mc.service.CreateManuscript(c.Request.Context(), services.NewManuscript{
		Title:          c.PostForm("title"),
		AuthorID:       c.PostForm("author_id"),
		CoAuthorIDs:    splitIDs(c.PostForm("co_author_ids")),
		FormResponseID: c.PostForm("form_response_id"),
		ManuscriptFile: path,
		Note:           c.PostForm("note"),
	}, user)
	if err != nil {
		mc.discardUpload(path)
		respondError(c, err)
		return
	}
	mc.respondView(c, m.ID, user, http.StatusCreated)
}

func (mc *ManuscriptController) respondView(c *gin.Context, id string, user models.CurrentUser, status int) {
	view, err := mc.service.GetManuscriptView(c.Request.Context(), id, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"manuscript": view})
}

func (mc *ManuscriptController) GetManuscript(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

func (mc *ManuscriptController) ChangeStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := utils.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := mc.service.ChangeStatus(c.Request.Context(), c.Param("id"), status, user, utils.SanitizeInput(req.Note)); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

func (mc *ManuscriptController) AssignReviewer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req assignReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := mc.service.AssignReviewer(c.Request.Context(), c.Param("id"), req.ReviewerID, user); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

// UnassignReviewer removes one reviewer, or all of them when the route has
// no reviewerId.
func (mc *ManuscriptController) UnassignReviewer(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if _, err := mc.service.UnassignReviewer(c.Request.Context(), c.Param("id"), c.Param("reviewerId"), user); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

func (mc *ManuscriptController) ExtendReviewerDeadline(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req extendDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := mc.service.ExtendReviewerDeadline(c.Request.Context(), c.Param("id"), c.Param("reviewerId"), req.Deadline, user); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

func (mc *ManuscriptController) SubmitDecision(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := mc.service.SubmitReviewerDecision(c.Request.Context(), c.Param("id"), user.ID, req.Decision, user); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

func (mc *ManuscriptController) SubmitReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	path, ok := mc.storeUpload(c, fmt.Sprintf("reviews/%s/%s", id, user.ID), false)
	if !ok {
		return
	}

	_, err := mc.service.SubmitReview(c.Request.Context(), id, user.ID, services.ReviewPayload{
		Comment:        c.PostForm("comment"),
		Recommendation: models.Recommendation(strings.TrimSpace(c.PostForm("recommendation"))),
		ReviewFile:     path,
	}, user)
	if err != nil {
		mc.discardUpload(path)
		respondError(c, err)
		return
	}
	mc.respondView(c, id, user, http.StatusCreated)
}

func (mc *ManuscriptController) Resubmit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id := c.Param("id")
	path, ok := mc.storeUpload(c, "manuscripts/"+id, true)
	if !ok {
		return
	}

	_, err := mc.service.Resubmit(c.Request.Context(), id, services.ResubmissionPayload{
		ManuscriptFile: path,
		Note:           c.PostForm("note"),
	}, user)
	if err != nil {
		mc.discardUpload(path)
		respondError(c, err)
		return
	}
	mc.respondView(c, id, user, http.StatusOK)
}

func (mc *ManuscriptController) Recompute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if _, err := mc.service.Recompute(c.Request.Context(), c.Param("id"), user); err != nil {
		respondError(c, err)
		return
	}
	mc.respondView(c, c.Param("id"), user, http.StatusOK)
}

// FileLink issues a signed download link for a file attached to the
// manuscript.
func (mc *ManuscriptController) FileLink(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	path := strings.TrimSpace(c.Query("path"))
	if err := mc.service.AuthorizeFile(c.Request.Context(), c.Param("id"), path, user); err != nil {
		respondError(c, err)
		return
	}
	link, err := mc.files.URL(path)
	if err != nil {
		log.Printf("[files] failed to sign %s: %v", path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create download link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}
