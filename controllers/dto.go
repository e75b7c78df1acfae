package controllers

import (
	"fmt"
	"time"

	"acrevista-api/models"
	"acrevista-api/services"
)

type userResponse struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

func toUser(u *models.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:        u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
	}
}

type profileUser struct {
	userResponse
	IsActive bool `json:"is_active"`
}

type profileResponse struct {
	Title       models.Title   `json:"title"`
	Phone       string         `json:"phone"`
	Country     models.Country `json:"country"`
	Affiliation string         `json:"affiliation"`
	User        *profileUser   `json:"user"`
}

func toProfile(p *models.Profile) profileResponse {
	out := profileResponse{
		Title:       p.Title,
		Phone:       p.Phone,
		Country:     p.Country,
		Affiliation: p.Affiliation,
	}
	if p.User != nil {
		out.User = &profileUser{userResponse: *toUser(p.User), IsActive: p.User.IsActive}
	}
	return out
}

type paperResponse struct {
	ID            int                `json:"id"`
	User          *userResponse      `json:"user"`
	Editor        *userResponse      `json:"editor"`
	Reviewers     []userResponse     `json:"reviewers"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Authors       string             `json:"authors"`
	Status        models.PaperStatus `json:"status"`
	Manuscript    string             `json:"manuscript"`
	CoverLetter   string             `json:"cover_letter"`
	Supplementary *string            `json:"supplementary"`
	Created       time.Time          `json:"created"`
}

func fileURL(paperID int, kind models.FileKind) string {
	return fmt.Sprintf("/api/papers/%d/files/%s", paperID, kind)
}

func toPaper(p *models.Paper) paperResponse {
	out := paperResponse{
		ID:          p.PaperID,
		User:        toUser(p.User),
		Editor:      toUser(p.Editor),
		Reviewers:   make([]userResponse, 0, len(p.Reviewers)),
		Title:       p.Title,
		Description: p.Description,
		Authors:     p.Authors,
		Status:      p.Status,
		Manuscript:  fileURL(p.PaperID, models.FileManuscript),
		CoverLetter: fileURL(p.PaperID, models.FileCoverLetter),
		Created:     p.Created,
	}
	for i := range p.Reviewers {
		out.Reviewers = append(out.Reviewers, *toUser(&p.Reviewers[i]))
	}
	if p.Supplementary != nil {
		u := fileURL(p.PaperID, models.FileSupplementary)
		out.Supplementary = &u
	}
	return out
}

func toPapers(papers []models.Paper) []paperResponse {
	out := make([]paperResponse, 0, len(papers))
	for i := range papers {
		out = append(out, toPaper(&papers[i]))
	}
	return out
}

type reviewResponse struct {
	ID                  int                    `json:"id"`
	User                *userResponse          `json:"user"`
	Paper               int                    `json:"paper"`
	Created             time.Time              `json:"created"`
	EditorReview        bool                   `json:"editor_review"`
	Appropriate         models.Appropriateness `json:"appropriate"`
	Recommendation      models.Recommendation  `json:"recommendation"`
	Comment             string                 `json:"comment"`
	ConfidentialComment *string                `json:"confidential_comment,omitempty"`
	AdditionalFile      *string                `json:"additional_file"`
}

// toReview hides the confidential comment from viewers not entitled to it.
func toReview(viewer *models.User, r *models.Review) reviewResponse {
	out := reviewResponse{
		ID:             r.ReviewID,
		User:           toUser(r.User),
		Paper:          r.PaperID,
		Created:        r.Created,
		EditorReview:   r.EditorReview,
		Appropriate:    r.Appropriate,
		Recommendation: r.Recommendation,
		Comment:        r.Comment,
	}
	if services.CanSeeConfidential(viewer, r.Paper, r) {
		cc := r.ConfidentialComment
		out.ConfidentialComment = &cc
	}
	if r.AdditionalFile != nil {
		u := fmt.Sprintf("/api/reviews/%d/file", r.ReviewID)
		out.AdditionalFile = &u
	}
	return out
}

func toReviews(viewer *models.User, reviews []models.Review) []reviewResponse {
	out := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReview(viewer, &reviews[i]))
	}
	return out
}

type invitationResponse struct {
	ID       int                    `json:"id"`
	Email    string                 `json:"email"`
	Paper    int                    `json:"paper"`
	URL      string                 `json:"url"`
	State    models.InvitationState `json:"state"`
	Accepted *bool                  `json:"accepted"`
	Created  time.Time              `json:"created"`
}

func toInvitation(inv *models.Invitation) invitationResponse {
	return invitationResponse{
		ID:       inv.InvitationID,
		Email:    inv.Email,
		Paper:    inv.PaperID,
		URL:      inv.URL,
		State:    inv.State(),
		Accepted: inv.Accepted,
		Created:  inv.CreateAt,
	}
}
