package services

import (
	"context"
	"fmt"
	"strings"

	"acrevista-api/config"
	"acrevista-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Event string

const (
	EventPaperSubmitted     Event = "paper_submitted"
	EventPaperStatusChanged Event = "paper_status_changed"
	EventReviewAdded        Event = "review_added"
	EventReviewInvitation   Event = "review_invitation"
	EventLoginTokenIssued   Event = "login_token_issued"
	EventPasswordReset      Event = "password_reset"
)

// Notice is one outbound message addressed to Recipients.
type Notice struct {
	Event      Event
	Recipients []string
	Subject    string
	Paragraphs []string
	Meta       []emailMetaItem
	ButtonText string
	ButtonURL  string
	Footer     string
}

// Notifier delivers notices. Implementations decide the transport.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// MailSender is satisfied by config.Mailer.
type MailSender interface {
	SendMail(to []string, subject, html string) error
}

// MailNotifier renders notices with the shared HTML layout and mails them.
type MailNotifier struct {
	sender   MailSender
	siteName string
}

func NewMailNotifier(sender MailSender, siteName string) *MailNotifier {
	return &MailNotifier{sender: sender, siteName: siteName}
}

func (m *MailNotifier) Notify(_ context.Context, notice Notice) error {
	html := buildEmailTemplate(m.siteName, notice.Subject, notice.Paragraphs, notice.Meta, notice.ButtonText, notice.ButtonURL, notice.Footer)
	return m.sender.SendMail(notice.Recipients, notice.Subject, html)
}

// broadcast delivers a one-to-many notice. Failures are logged and dropped so
// they never block the operation that triggered them.
func broadcast(ctx context.Context, n Notifier, notice Notice) {
	if n == nil || len(notice.Recipients) == 0 {
		return
	}
	if err := n.Notify(ctx, notice); err != nil {
		config.Log.Warn("broadcast notification failed",
			zap.String("event", string(notice.Event)),
			zap.Int("recipients", len(notice.Recipients)),
			zap.Error(err),
		)
	}
}

// direct delivers a one-to-one notice that is part of the operation's contract.
func direct(ctx context.Context, n Notifier, notice Notice) error {
	if n == nil {
		return fmt.Errorf("%w: %s: no notifier configured", ErrDeliveryFailed, notice.Event)
	}
	if err := n.Notify(ctx, notice); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, notice.Event, err)
	}
	return nil
}

// staffRecipients returns the address of every staff member that has one.
func staffRecipients(ctx context.Context, db *gorm.DB) []string {
	var emails []string
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("is_staff = ? AND is_active = ? AND email <> ''", true, true).
		Order("user_id").
		Pluck("email", &emails).Error; err != nil {
		config.Log.Warn("failed to load staff recipients", zap.Error(err))
		return nil
	}
	return emails
}

// Notice builders.

func paperSubmittedNotice(recipients []string, paper *models.Paper) Notice {
	return Notice{
		Event:      EventPaperSubmitted,
		Recipients: recipients,
		Subject:    "A new paper has been submitted!",
		Paragraphs: []string{
			fmt.Sprintf("A new paper: '%s' has been submitted by the following authors:", paper.Title),
			paper.Authors,
		},
	}
}

func statusChangedNotice(recipients []string, paper *models.Paper, from, to models.PaperStatus) Notice {
	return Notice{
		Event:      EventPaperStatusChanged,
		Recipients: recipients,
		Subject:    fmt.Sprintf("%s - Status was changed.", paper.Title),
		Paragraphs: []string{
			fmt.Sprintf("The status for %s was changed from %s to %s.", paper.Title, from.Label(), to.Label()),
		},
	}
}

func reviewAddedNotice(recipient string, paper *models.Paper) Notice {
	return Notice{
		Event:      EventReviewAdded,
		Recipients: []string{recipient},
		Subject:    fmt.Sprintf("New review: %s", paper.Title),
		Paragraphs: []string{
			fmt.Sprintf("A new review for the paper %s has been added!", paper.Title),
		},
	}
}

func invitationNotice(siteName, recipient string, paper *models.Paper, acceptURL, rejectURL string) Notice {
	return Notice{
		Event:      EventReviewInvitation,
		Recipients: []string{recipient},
		Subject:    "Review requested!",
		Paragraphs: []string{
			"Hello,",
			fmt.Sprintf("Somebody at %s requested that you review the paper \"%s\".", siteName, paper.Title),
			"Do you accept the invitation?",
		},
		ButtonText: "Accept invitation",
		ButtonURL:  acceptURL,
		Footer:     fmt.Sprintf(`If you do not wish to review this paper, <a href="%s" style="color:#1d4ed8;">reject the invitation</a>.`, escapeAttr(rejectURL)),
	}
}

func loginTokenNotice(siteName, recipient, loginURL string) Notice {
	return Notice{
		Event:      EventLoginTokenIssued,
		Recipients: []string{recipient},
		Subject:    "Review requested!",
		Paragraphs: []string{
			"Hello,",
			fmt.Sprintf("Somebody at %s requested that you review a paper.", siteName),
			"Use the button below to sign in and learn more.",
		},
		ButtonText: "Sign in",
		ButtonURL:  loginURL,
		Footer:     linkFooter(loginURL),
	}
}

func passwordResetNotice(recipient, fullName, resetURL, expiresIn string) Notice {
	return Notice{
		Event:      EventPasswordReset,
		Recipients: []string{recipient},
		Subject:    "Password reset instructions",
		Paragraphs: []string{
			fmt.Sprintf("Dear %s,", fullName),
			"We received a request to reset the password of your account.",
			fmt.Sprintf("Use the button below to choose a new password. The link expires in %s.", expiresIn),
			"If you did not request this, you can ignore this email.",
		},
		Meta:       []emailMetaItem{{Label: "Link expires in", Value: expiresIn}},
		ButtonText: "Reset password",
		ButtonURL:  resetURL,
		Footer:     linkFooter(resetURL),
	}
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;").Replace(s)
}
