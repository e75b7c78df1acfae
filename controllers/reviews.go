package controllers

import (
	"net/http"
	"strings"

	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

// CreateReview accepts JSON, or a multipart form when an additional file is attached.
func (ctl *Controller) CreateReview(c *gin.Context) {
	var in services.ReviewInput
	if err := c.ShouldBind(&in); err != nil {
		badPayload(c, err)
		return
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in.AdditionalFile, _ = c.FormFile("additional_file")
	}

	user := currentUser(c)
	review, err := ctl.svc.Reviews.Create(c.Request.Context(), user, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReview(user, review))
}

func (ctl *Controller) GetOwnReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	review, err := ctl.svc.Reviews.GetOwn(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReview(user, review))
}

func (ctl *Controller) UpdateOwnReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch services.ReviewPatch
	if err := c.ShouldBind(&patch); err != nil {
		badPayload(c, err)
		return
	}
	user := currentUser(c)
	review, err := ctl.svc.Reviews.UpdateOwn(c.Request.Context(), user, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReview(user, review))
}

// ListPaperReviews is limited to the paper's editor and staff.
func (ctl *Controller) ListPaperReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	reviews, err := ctl.svc.Reviews.ListForPaper(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviews(user, reviews))
}

func (ctl *Controller) EditorReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	review, err := ctl.svc.Reviews.EditorReview(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReview(user, review))
}

func (ctl *Controller) DownloadReviewFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rc, name, err := ctl.svc.Reviews.OpenAttachment(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	streamFile(c, rc, name)
}
