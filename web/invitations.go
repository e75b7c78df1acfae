package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"acrevista-api/middleware"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

// AcceptInvite follows the accept link of an invitation mail and lands the
// reviewer, signed in through the login token, on the invitation URL.
func (h *Handler) AcceptInvite(c *gin.Context) {
	redirect, err := h.svc.Invitations.Accept(c.Request.Context(), c.Param("token"))
	switch {
	case errors.Is(err, services.ErrInvitationClosed):
		middleware.AddFlash(c, "warning", "This invitation was rejected and can no longer be accepted.")
	case err != nil:
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, redirect)
}

func (h *Handler) RejectInvite(c *gin.Context) {
	redirect, err := h.svc.Invitations.Reject(c.Request.Context(), c.Param("token"))
	switch {
	case errors.Is(err, services.ErrInvitationClosed):
		middleware.AddFlash(c, "warning", "This invitation was already accepted.")
	case err != nil:
		h.fail(c, err)
		return
	default:
		middleware.AddFlash(c, "info", "The invitation has been declined. Thank you for letting us know.")
	}
	c.Redirect(http.StatusFound, redirect)
}

func (h *Handler) InviteUser(c *gin.Context) {
	paperID, _ := strconv.Atoi(c.PostForm("paper"))
	_, err := h.svc.Invitations.Invite(c.Request.Context(), currentUser(c), services.InviteInput{
		Email:   c.PostForm("email"),
		PaperID: paperID,
		URL:     c.PostForm("url"),
	})
	if fields, ok := fieldErrorsOf(err); ok {
		middleware.AddFlash(c, "warning", "Invitation not sent: "+fields.Error())
	} else if errors.Is(err, services.ErrAlreadyInvited) {
		middleware.AddFlash(c, "warning", "User has already been invited!")
	} else if err != nil {
		h.fail(c, err)
		return
	} else {
		middleware.AddFlash(c, "success", "Invitation sent.")
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/journal/paper/%d", paperID))
}

// GetInvitations answers the paper page's polling with the invitation list.
func (h *Handler) GetInvitations(c *gin.Context) {
	paperID, _ := strconv.Atoi(c.Query("paper"))
	invitations, err := h.svc.Invitations.ListForPaper(c.Request.Context(), currentUser(c), paperID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrForbidden):
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, gin.H{"id": inv.InvitationID, "email": inv.Email, "state": inv.State()})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CancelInvite(c *gin.Context) {
	invitationID, _ := strconv.Atoi(c.PostForm("invitation"))
	err := h.svc.Invitations.Cancel(c.Request.Context(), currentUser(c), invitationID)
	switch {
	case errors.Is(err, services.ErrInvitationClosed):
		middleware.AddFlash(c, "warning", "Only pending invitations can be cancelled.")
	case err != nil:
		h.fail(c, err)
		return
	default:
		middleware.AddFlash(c, "success", "Invitation cancelled.")
	}
	c.Redirect(http.StatusFound, safeNext(c.PostForm("next"), "/account/"))
}
