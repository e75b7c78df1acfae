package controllers

import (
	"net/http"

	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

type invitationRequest struct {
	Email string `json:"email" form:"email"`
	URL   string `json:"url" form:"url"`
}

func (ctl *Controller) ListInvitations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invitations, err := ctl.svc.Invitations.ListForPaper(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]invitationResponse, 0, len(invitations))
	for i := range invitations {
		out = append(out, toInvitation(&invitations[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateInvitation mails a review invitation for the paper in the path.
func (ctl *Controller) CreateInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req invitationRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	inv, err := ctl.svc.Invitations.Invite(c.Request.Context(), currentUser(c), services.InviteInput{
		Email:   req.Email,
		PaperID: id,
		URL:     req.URL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvitation(inv))
}

// CancelInvitation withdraws a pending invitation.
func (ctl *Controller) CancelInvitation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Invitations.Cancel(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
