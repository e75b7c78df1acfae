package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"acrevista-api/models"
	"acrevista-api/utils"

	"gorm.io/gorm"
)

type InviteInput struct {
	Email   string `json:"email" form:"email" validate:"required,email,max=254"`
	PaperID int    `json:"paper" form:"paper" validate:"required,gt=0"`
	URL     string `json:"url" form:"url"`
}

type InvitationService struct {
	db       *gorm.DB
	notifier Notifier
	tokens   *LoginTokenService
	siteName string
	baseURL  string
}

// Invite asks email to review a paper and mails the accept and reject links.
// The mail is part of the operation: if it cannot be sent no invitation is kept.
func (s *InvitationService) Invite(ctx context.Context, actor *models.User, in InviteInput) (*models.Invitation, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.URL = utils.SanitizeInput(in.URL)

	fields := utils.ValidateStruct(in)
	redirect, ok := s.redirectTarget(in.URL, in.PaperID)
	if !ok {
		fields.Add("url", "Enter a URL on this site.")
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	paper, err := loadPaper(ctx, s.db, in.PaperID)
	if err != nil {
		return nil, err
	}
	if !CanInvite(actor, paper) {
		return nil, ErrForbidden
	}

	token, err := GenerateSecurityToken(DefaultTokenBytes)
	if err != nil {
		return nil, err
	}
	invitation := &models.Invitation{
		Email:   in.Email,
		Name:    models.PaperName(paper.PaperID),
		PaperID: paper.PaperID,
		URL:     redirect,
		Token:   token,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&models.Invitation{}).
			Where("email = ? AND paper_id = ? AND (accepted IS NULL OR accepted = ?)", in.Email, paper.PaperID, true).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return ErrAlreadyInvited
		}
		if err := tx.Create(invitation).Error; err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return direct(ctx, s.notifier, invitationNotice(s.siteName, in.Email, paper, s.AcceptURL(token), s.RejectURL(token)))
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// redirectTarget resolves where an accepted invitation lands. Only the site
// itself is allowed.
func (s *InvitationService) redirectTarget(raw string, paperID int) (string, bool) {
	if raw == "" {
		return fmt.Sprintf("%s/journal/paper/%d", s.baseURL, paperID), true
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return s.baseURL + raw, true
	}
	if raw == s.baseURL || strings.HasPrefix(raw, s.baseURL+"/") {
		return raw, true
	}
	return "", false
}

func (s *InvitationService) AcceptURL(token string) string {
	return fmt.Sprintf("%s/account/invite/%s/accept", s.baseURL, url.PathEscape(token))
}

func (s *InvitationService) RejectURL(token string) string {
	return fmt.Sprintf("%s/account/invite/%s/reject", s.baseURL, url.PathEscape(token))
}

// Accept moves a pending invitation to accepted, adds the invitee to the
// paper's reviewers and returns the invitation URL carrying a freshly minted
// login token. Accepting again reuses that token while it is valid. A rejected invitation redirects to
// the site root with ErrInvitationClosed.
func (s *InvitationService) Accept(ctx context.Context, token string) (string, error) {
	var redirect string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invitation
		if err := tx.Where("token = ?", token).First(&inv).Error; err != nil {
			return notFoundOr(err)
		}
		if inv.State() == models.InvitationRejected {
			return ErrInvitationClosed
		}

		user, err := ensureUserTx(tx, inv.Email)
		if err != nil {
			return err
		}
		paper, err := loadPaper(ctx, tx, inv.PaperID)
		if err != nil {
			return err
		}
		if err := addReviewerTx(tx, paper, user); err != nil {
			return fmt.Errorf("add reviewer: %w", err)
		}

		var login *models.LoginToken
		if inv.State() == models.InvitationPending {
			if err := tx.Model(&models.Invitation{}).Where("invitation_id = ?", inv.InvitationID).Update("accepted", true).Error; err != nil {
				return err
			}
			login, err = s.tokens.issueTx(tx, user.UserID)
		} else {
			login, err = s.liveTokenTx(tx, user.UserID)
		}
		if err != nil {
			return err
		}
		redirect, err = withToken(inv.URL, login.Token)
		return err
	})
	if errors.Is(err, ErrInvitationClosed) {
		return "/", err
	}
	if err != nil {
		return "", err
	}
	return redirect, nil
}

// liveTokenTx returns the user's unexpired login token or mints a new one.
func (s *InvitationService) liveTokenTx(tx *gorm.DB, userID int) (*models.LoginToken, error) {
	var current models.LoginToken
	err := tx.Where("user_id = ?", userID).First(&current).Error
	if err == nil && !current.Expired(s.tokens.now()) {
		return &current, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.tokens.issueTx(tx, userID)
}

// Reject closes a pending invitation. Rejecting twice is a no-op; an accepted
// invitation cannot be rejected and reports ErrInvitationClosed.
func (s *InvitationService) Reject(ctx context.Context, token string) (string, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return "", notFoundOr(err)
	}
	switch inv.State() {
	case models.InvitationAccepted:
		return "/", ErrInvitationClosed
	case models.InvitationRejected:
		return "/", nil
	}
	err := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("invitation_id = ? AND accepted IS NULL", inv.InvitationID).
		Update("accepted", false).Error
	return "/", err
}

// ListForPaper returns a paper's invitations to its editor and to staff.
func (s *InvitationService) ListForPaper(ctx context.Context, actor *models.User, paperID int) ([]models.Invitation, error) {
	paper, err := loadPaper(ctx, s.db, paperID)
	if err != nil {
		return nil, err
	}
	if !CanInvite(actor, paper) {
		return nil, ErrForbidden
	}
	var out []models.Invitation
	err = s.db.WithContext(ctx).Where("paper_id = ?", paperID).Order("invitation_id").Find(&out).Error
	return out, err
}

// Cancel deletes a pending invitation.
func (s *InvitationService) Cancel(ctx context.Context, actor *models.User, invitationID int) error {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).First(&inv, "invitation_id = ?", invitationID).Error; err != nil {
		return notFoundOr(err)
	}
	paper, err := loadPaper(ctx, s.db, inv.PaperID)
	if err != nil {
		return err
	}
	if !CanInvite(actor, paper) {
		return ErrForbidden
	}
	if inv.State() != models.InvitationPending {
		return ErrInvitationClosed
	}
	return s.db.WithContext(ctx).Delete(&models.Invitation{}, "invitation_id = ?", inv.InvitationID).Error
}

// withToken appends token as the "token" query parameter of raw.
func withToken(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
