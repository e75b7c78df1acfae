package controllers

import (
	"net/http"
	"strings"

	"acrevista-api/models"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

type tokenAuthRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenRequest struct {
	Token string `json:"token" form:"token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" form:"old_password"`
	NewPassword string `json:"new_password" form:"new_password"`
}

// tokenPayload is the body returned after login or refresh.
func (ctl *Controller) tokenPayload(user *models.User) (gin.H, error) {
	token, expires, err := ctl.auth.IssueToken(user)
	if err != nil {
		return nil, err
	}
	profilePK := 0
	if user.Profile != nil {
		profilePK = user.Profile.ProfileID
	}
	return gin.H{
		"token":           token,
		"id":              user.UserID,
		"profile_pk":      profilePK,
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"is_staff":        user.IsStaff,
		"expiration_date": float64(expires.UnixMilli()) / 1000,
	}, nil
}

// TokenAuth exchanges username and password for a bearer token.
func (ctl *Controller) TokenAuth(c *gin.Context) {
	var req tokenAuthRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	username := req.Username
	if username == "" {
		username = req.Email
	}

	user, err := ctl.svc.Accounts.Authenticate(c.Request.Context(), username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.respondWithToken(c, user.UserID)
}

func (ctl *Controller) respondWithToken(c *gin.Context, userID int) {
	user, err := ctl.svc.Accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	payload, err := ctl.tokenPayload(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// TokenRefresh issues a fresh token for a still valid one.
func (ctl *Controller) TokenRefresh(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	claims, err := ctl.auth.ParseToken(strings.TrimSpace(req.Token))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Invalid or expired token."}})
		return
	}
	ctl.respondWithToken(c, claims.UserID)
}

// TokenVerify echoes a token back when it is valid.
func (ctl *Controller) TokenVerify(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	token := strings.TrimSpace(req.Token)
	if _, err := ctl.auth.ParseToken(token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Invalid or expired token."}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Register creates an account. The password never appears in the response.
func (ctl *Controller) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	user, err := ctl.svc.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUser(user))
}

func (ctl *Controller) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	if err := ctl.svc.Accounts.ChangePassword(c.Request.Context(), currentUser(c), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, "Success.")
}

func (ctl *Controller) ChangeUserDetails(c *gin.Context) {
	var req services.NamePatch
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c, err)
		return
	}
	user, err := ctl.svc.Accounts.ChangeName(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"first_name": user.FirstName, "last_name": user.LastName})
}

// ListUsers searches accounts by email for editors picking reviewers.
func (ctl *Controller) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	allowed, err := ctl.svc.Accounts.CanSearchUsers(ctx, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		respondError(c, services.ErrForbidden)
		return
	}

	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The GET param email is missing!"})
		return
	}
	users, err := ctl.svc.Accounts.SearchUsers(ctx, email)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]*userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUser(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

// IssueLoginToken mails a passwordless sign-in link to a user. Staff only.
func (ctl *Controller) IssueLoginToken(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user, err := ctl.svc.Accounts.GetUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := ctl.svc.Tokens.IssueAndSend(ctx, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.UserID, "expiry_date": token.ExpiryDate})
}
