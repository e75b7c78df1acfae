package controllers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"acrevista-api/models"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

type reviewerRequest struct {
	User int `json:"user" form:"user" binding:"required,gt=0"`
}

type historyResponse struct {
	OldStatus models.PaperStatus `json:"old_status"`
	NewStatus models.PaperStatus `json:"new_status"`
	ChangedBy *int               `json:"changed_by"`
	Reason    string             `json:"reason"`
	Created   string             `json:"created"`
}

// CountPapers is public and answers with a bare number.
func (ctl *Controller) CountPapers(c *gin.Context) {
	n, err := ctl.svc.Papers.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// SubmitPaper accepts a multipart form. The author is always the caller.
func (ctl *Controller) SubmitPaper(c *gin.Context) {
	var in services.SubmitInput
	if err := c.ShouldBind(&in); err != nil {
		badPayload(c, err)
		return
	}
	in.Manuscript, _ = c.FormFile(string(models.FileManuscript))
	in.CoverLetter, _ = c.FormFile(string(models.FileCoverLetter))
	in.Supplementary, _ = c.FormFile(string(models.FileSupplementary))

	paper, err := ctl.svc.Papers.Submit(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaper(paper))
}

type paperLister func(ctx context.Context, user *models.User) ([]models.Paper, error)

func (ctl *Controller) listPapers(list paperLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		papers, err := list(c.Request.Context(), currentUser(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPapers(papers))
	}
}

func (ctl *Controller) ListSubmittedPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListSubmitted)(c)
}

func (ctl *Controller) ListAllPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListAll)(c)
}

// ListEditorPapers lists every paper that already has an editor.
func (ctl *Controller) ListEditorPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListWithEditor)(c)
}

func (ctl *Controller) ListNoEditorPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListWithoutEditor)(c)
}

// ListEditorSelfPapers lists the papers the caller edits.
func (ctl *Controller) ListEditorSelfPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListEditedBy)(c)
}

func (ctl *Controller) ListReviewerPapers(c *gin.Context) {
	ctl.listPapers(ctl.svc.Papers.ListReviewing)(c)
}

func (ctl *Controller) PaperDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paper, err := ctl.svc.Papers.Detail(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaper(paper))
}

func (ctl *Controller) PaperHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rows, err := ctl.svc.Papers.History(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]historyResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyResponse{
			OldStatus: row.OldStatus,
			NewStatus: row.NewStatus,
			ChangedBy: row.ChangedBy,
			Reason:    row.Reason,
			Created:   row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	c.JSON(http.StatusOK, out)
}

// SetEditor makes the calling staff member the paper's editor.
func (ctl *Controller) SetEditor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paper, err := ctl.svc.Papers.SetEditor(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaper(paper))
}

func (ctl *Controller) ClearEditor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paper, err := ctl.svc.Papers.ClearEditor(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaper(paper))
}

func (ctl *Controller) AddReviewer(c *gin.Context) {
	ctl.changeReviewer(c, ctl.svc.Papers.AddReviewer)
}

func (ctl *Controller) RemoveReviewer(c *gin.Context) {
	ctl.changeReviewer(c, ctl.svc.Papers.RemoveReviewer)
}

func (ctl *Controller) changeReviewer(c *gin.Context, apply func(context.Context, *models.User, int, int) (*models.Paper, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"user": []string{"This field is required."}})
		return
	}
	paper, err := apply(c.Request.Context(), currentUser(c), id, req.User)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaper(paper))
}

// DownloadPaperFile streams manuscript, cover_letter or supplementary.
func (ctl *Controller) DownloadPaperFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	kind := models.FileKind(c.Param("kind"))
	switch kind {
	case models.FileManuscript, models.FileCoverLetter, models.FileSupplementary:
	default:
		respondError(c, services.ErrNotFound)
		return
	}
	rc, name, err := ctl.svc.Papers.OpenFile(c.Request.Context(), currentUser(c), id, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	streamFile(c, rc, name)
}

func streamFile(c *gin.Context, rc io.ReadCloser, name string) {
	defer rc.Close()
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(fmt.Errorf("stream %s: %w", name, err))
	}
}
