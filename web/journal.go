package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"acrevista-api/middleware"
	"acrevista-api/models"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Journal(c *gin.Context) {
	h.render(c, http.StatusOK, "journal", gin.H{"Title": "Journal", "Section": "journal"})
}

// formatAuthors turns the repeated author rows of the submit form into one
// "First Last <email>" line per author. Empty rows are skipped.
func formatAuthors(firstNames, lastNames, emails []string) string {
	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	rows := max(len(firstNames), len(lastNames), len(emails))
	var lines []string
	for i := 0; i < rows; i++ {
		name := strings.TrimSpace(at(firstNames, i) + " " + at(lastNames, i))
		email := at(emails, i)
		switch {
		case name == "" && email == "":
			continue
		case email == "":
			lines = append(lines, name)
		case name == "":
			lines = append(lines, "<"+email+">")
		default:
			lines = append(lines, fmt.Sprintf("%s <%s>", name, email))
		}
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) SubmitForm(c *gin.Context) {
	h.render(c, http.StatusOK, "submit", gin.H{"Title": "Submit paper", "Section": "journal"})
}

func (h *Handler) Submit(c *gin.Context) {
	in := services.SubmitInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Authors: formatAuthors(
			c.PostFormArray("authors_first_name"),
			c.PostFormArray("authors_last_name"),
			c.PostFormArray("authors_email"),
		),
	}
	in.Manuscript, _ = c.FormFile(string(models.FileManuscript))
	in.CoverLetter, _ = c.FormFile(string(models.FileCoverLetter))
	in.Supplementary, _ = c.FormFile(string(models.FileSupplementary))

	paper, err := h.svc.Papers.Submit(c.Request.Context(), currentUser(c), in)
	if err != nil {
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		middleware.AddFlash(c, "warning", "Error submitting paper!")
		h.render(c, http.StatusBadRequest, "submit", gin.H{
			"Title":   "Submit paper",
			"Section": "journal",
			"Form":    map[string]string{"title": in.Title, "description": in.Description},
			"Errors":  fields,
		})
		return
	}
	middleware.AddFlash(c, "success", "Paper submitted successfully!")
	c.Redirect(http.StatusFound, fmt.Sprintf("/journal/paper/%d", paper.PaperID))
}

func (h *Handler) History(c *gin.Context) {
	papers, err := h.svc.Papers.ListSubmitted(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "history", gin.H{"Title": "Submission history", "Section": "journal", "Papers": papers})
}

func paperParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, services.ErrNotFound
	}
	return id, nil
}

// PaperDetail shows a paper with the sections the viewer is entitled to:
// reviews and invitations for its editor and staff, a review form for
// reviewers who have not reviewed yet.
func (h *Handler) PaperDetail(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	id, err := paperParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	paper, err := h.svc.Papers.Detail(ctx, user, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := gin.H{"Title": paper.Title, "Section": "journal", "Paper": paper}
	if services.CanManageReviews(user, paper) {
		reviews, err := h.svc.Reviews.ListForPaper(ctx, user, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		invitations, err := h.svc.Invitations.ListForPaper(ctx, user, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		data["Reviews"] = reviews
		data["Invitations"] = invitations
		data["CanInvite"] = true
	}
	if services.CanReview(user, paper) {
		own, err := h.svc.Reviews.GetOwn(ctx, user, id)
		switch {
		case errors.Is(err, services.ErrNotFound):
			data["CanReview"] = true
			data["Appropriateness"] = models.ValidAppropriateness()
			data["Recommendations"] = models.ValidRecommendations()
		case err != nil:
			h.fail(c, err)
			return
		default:
			data["OwnReview"] = own
		}
	}
	h.render(c, http.StatusOK, "paper_detail", data)
}

func (h *Handler) PaperFile(c *gin.Context) {
	id, err := paperParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	kind := models.FileKind(c.Param("kind"))
	rc, name, err := h.svc.Papers.OpenFile(c.Request.Context(), currentUser(c), id, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	})
}

// ReviewQueue lists the papers the user was asked to review.
func (h *Handler) ReviewQueue(c *gin.Context) {
	papers, err := h.svc.Papers.ListReviewing(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "review", gin.H{"Title": "Reviews", "Section": "journal", "Papers": papers})
}

func (h *Handler) SubmitReview(c *gin.Context) {
	paperID, _ := strconv.Atoi(c.PostForm("paper"))
	in := services.ReviewInput{
		PaperID:             paperID,
		Appropriate:         c.PostForm("appropriate"),
		Recommendation:      c.PostForm("recommendation"),
		Comment:             c.PostForm("comment"),
		ConfidentialComment: c.PostForm("confidential_comment"),
	}
	in.AdditionalFile, _ = c.FormFile("additional_file")

	_, err := h.svc.Reviews.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		fields, ok := fieldErrorsOf(err)
		switch {
		case ok:
			middleware.AddFlash(c, "warning", "Error submitting review: "+fields.Error())
		case errors.Is(err, services.ErrAlreadyReviewed), errors.Is(err, services.ErrForbidden):
			middleware.AddFlash(c, "warning", "You cannot submit a review for this paper.")
		default:
			h.fail(c, err)
			return
		}
	} else {
		middleware.AddFlash(c, "success", "Review submitted successfully!")
	}
	if paperID > 0 {
		c.Redirect(http.StatusFound, fmt.Sprintf("/journal/paper/%d", paperID))
		return
	}
	c.Redirect(http.StatusFound, "/journal/review")
}
