package web

import (
	"errors"
	"net/http"
	"strings"

	"acrevista-api/middleware"
	"acrevista-api/models"
	"acrevista-api/services"
	"acrevista-api/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Home(c *gin.Context) {
	count, err := h.svc.Papers.Count(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "home", gin.H{"Title": "Home", "PaperCount": count})
}

func (h *Handler) RegisterForm(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/account/")
		return
	}
	h.render(c, http.StatusOK, "register", gin.H{"Title": "Register", "Section": "account"})
}

func (h *Handler) Register(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/account/")
		return
	}
	form := formValues(c, "email", "first_name", "last_name")
	errs := utils.FieldErrors{}
	if c.PostForm("password") != c.PostForm("password2") {
		errs.Add("password2", "Passwords don't match.")
	}

	var user *models.User
	if errs.Empty() {
		created, err := h.svc.Accounts.Register(c.Request.Context(), services.RegisterInput{
			Email:     form["email"],
			Password:  c.PostForm("password"),
			FirstName: form["first_name"],
			LastName:  form["last_name"],
		})
		if fields, ok := fieldErrorsOf(err); ok {
			errs = fields
		} else if err != nil {
			h.fail(c, err)
			return
		}
		user = created
	}
	if !errs.Empty() {
		h.render(c, http.StatusBadRequest, "register", gin.H{"Title": "Register", "Section": "account", "Form": form, "Errors": errs})
		return
	}
	h.render(c, http.StatusOK, "register_done", gin.H{"Title": "Welcome", "Section": "account", "NewUser": user})
}

func (h *Handler) LoginForm(c *gin.Context) {
	if currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/account/")
		return
	}
	h.render(c, http.StatusOK, "login", gin.H{"Title": "Log in", "Next": c.Query("next")})
}

func (h *Handler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	next := c.PostForm("next")

	user, err := h.svc.Accounts.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		msg := "Invalid username or password."
		switch {
		case errors.Is(err, services.ErrInactiveUser):
			msg = "Disabled account"
		case !errors.Is(err, services.ErrInvalidCredentials):
			h.fail(c, err)
			return
		}
		h.render(c, http.StatusOK, "login", gin.H{"Title": "Log in", "Error": msg, "Username": username, "Next": next})
		return
	}
	if err := h.auth.StartSession(c, user); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(next, "/account/"))
}

func (h *Handler) Logout(c *gin.Context) {
	h.auth.EndSession(c)
	c.Redirect(http.StatusFound, "/")
}

// Dashboard lists the papers the user wrote, edits and reviews.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	submitted, err := h.svc.Papers.ListSubmitted(ctx, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	editing, err := h.svc.Papers.ListEditedBy(ctx, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	reviewing, err := h.svc.Papers.ListReviewing(ctx, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":     "Dashboard",
		"Section":   "account",
		"Submitted": submitted,
		"Editing":   editing,
		"Reviewing": reviewing,
	})
}

func (h *Handler) PersonalDetailsForm(c *gin.Context) {
	profile, err := h.svc.Accounts.OwnProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderPersonalDetails(c, http.StatusOK, map[string]string{
		"first_name":  profile.User.FirstName,
		"last_name":   profile.User.LastName,
		"title":       string(profile.Title),
		"phone":       profile.Phone,
		"country":     string(profile.Country),
		"affiliation": profile.Affiliation,
	}, nil)
}

func (h *Handler) renderPersonalDetails(c *gin.Context, status int, form map[string]string, errs utils.FieldErrors) {
	h.render(c, status, "personal_details", gin.H{
		"Title":     "Personal details",
		"Section":   "account",
		"Form":      form,
		"Errors":    errs,
		"Titles":    models.ValidTitles(),
		"Countries": models.ValidCountries(),
	})
}

// PersonalDetails updates the name and the profile from one form.
func (h *Handler) PersonalDetails(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	form := formValues(c, "first_name", "last_name", "title", "phone", "country", "affiliation")

	errs := utils.FieldErrors{}
	if _, err := h.svc.Accounts.ChangeName(ctx, user, services.NamePatch{
		FirstName: ptr(form["first_name"]),
		LastName:  ptr(form["last_name"]),
	}); err != nil {
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		errs.Merge(fields)
	}
	if _, err := h.svc.Accounts.UpdateProfile(ctx, user, user.UserID, services.ProfilePatch{
		Title:       ptr(form["title"]),
		Phone:       ptr(form["phone"]),
		Country:     ptr(form["country"]),
		Affiliation: ptr(form["affiliation"]),
	}); err != nil {
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		errs.Merge(fields)
	}

	if !errs.Empty() {
		middleware.AddFlash(c, "warning", "Error updating profile!")
		h.renderPersonalDetails(c, http.StatusBadRequest, form, errs)
		return
	}
	middleware.AddFlash(c, "success", "Profile updated successfully!")
	c.Redirect(http.StatusFound, "/account/personal-details")
}

func (h *Handler) EmailChangeForm(c *gin.Context) {
	h.render(c, http.StatusOK, "email_change", gin.H{"Title": "Change email", "Section": "account"})
}

func (h *Handler) EmailChange(c *gin.Context) {
	email := c.PostForm("email")
	if err := h.svc.Accounts.ChangeEmail(c.Request.Context(), currentUser(c), email); err != nil {
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		middleware.AddFlash(c, "danger", "Error changing email!")
		h.render(c, http.StatusBadRequest, "email_change", gin.H{
			"Title":   "Change email",
			"Section": "account",
			"Form":    map[string]string{"email": email},
			"Errors":  fields,
		})
		return
	}
	middleware.AddFlash(c, "success", "Email changed!")
	c.Redirect(http.StatusFound, "/account/email-change")
}

func (h *Handler) PasswordChangeForm(c *gin.Context) {
	h.render(c, http.StatusOK, "password_change", gin.H{"Title": "Change password", "Section": "account"})
}

func (h *Handler) PasswordChange(c *gin.Context) {
	newPassword := c.PostForm("new_password")
	var err error
	if newPassword != c.PostForm("confirm_password") {
		err = &services.ValidationError{Fields: utils.FieldErrors{"confirm_password": {"The two password fields didn't match."}}}
	} else {
		err = h.svc.Accounts.ChangePassword(c.Request.Context(), currentUser(c), c.PostForm("old_password"), newPassword)
	}
	if err != nil {
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.render(c, http.StatusBadRequest, "password_change", gin.H{"Title": "Change password", "Section": "account", "Errors": fields})
		return
	}
	middleware.AddFlash(c, "success", "Your password was changed.")
	c.Redirect(http.StatusFound, "/account/")
}

func (h *Handler) PasswordResetForm(c *gin.Context) {
	h.render(c, http.StatusOK, "password_reset", gin.H{"Title": "Reset password"})
}

// PasswordReset always answers the same way so addresses cannot be probed.
func (h *Handler) PasswordReset(c *gin.Context) {
	err := h.svc.PasswordReset.RequestReset(c.Request.Context(), c.PostForm("email"), c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		if fields, ok := fieldErrorsOf(err); ok {
			h.render(c, http.StatusBadRequest, "password_reset", gin.H{"Title": "Reset password", "Errors": fields})
			return
		}
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "password_reset", gin.H{"Title": "Reset password", "Sent": true})
}

func (h *Handler) PasswordResetConfirmForm(c *gin.Context) {
	h.render(c, http.StatusOK, "password_reset_confirm", gin.H{"Title": "Choose a new password", "Key": c.Query("key")})
}

func (h *Handler) PasswordResetConfirm(c *gin.Context) {
	key := c.PostForm("key")
	err := h.svc.PasswordReset.Reset(c.Request.Context(), key, c.PostForm("new_password"), c.PostForm("confirm_password"))
	switch {
	case err == nil:
		middleware.AddFlash(c, "success", "Your password has been set. You may go ahead and log in now.")
		c.Redirect(http.StatusFound, "/account/login")
	case errors.Is(err, services.ErrTokenInvalid):
		h.render(c, http.StatusBadRequest, "password_reset_confirm", gin.H{"Title": "Choose a new password", "Invalid": true})
	default:
		fields, ok := fieldErrorsOf(err)
		if !ok {
			h.fail(c, err)
			return
		}
		h.render(c, http.StatusBadRequest, "password_reset_confirm", gin.H{"Title": "Choose a new password", "Key": key, "Errors": fields})
	}
}
