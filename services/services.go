package services

import (
	"context"
	"time"

	"acrevista-api/models"

	"gorm.io/gorm"
)

// Metrics receives domain events worth counting.
type Metrics interface {
	PaperSubmitted()
	ReviewSubmitted(editorReview bool)
	StatusTransition(from, to models.PaperStatus)
}

type noopMetrics struct{}

func (noopMetrics) PaperSubmitted()                          {}
func (noopMetrics) ReviewSubmitted(bool)                     {}
func (noopMetrics) StatusTransition(_, _ models.PaperStatus) {}

// Deps are the collaborators shared by every service.
type Deps struct {
	DB             *gorm.DB
	Storage        Storage
	Notifier       Notifier
	Metrics        Metrics
	SiteName       string
	BaseURL        string
	MaxUploadBytes int64
	LoginTokenDays int
	Now            func() time.Time
}

// Services bundles the application services used by the HTTP layers.
type Services struct {
	Accounts      *AccountService
	Tokens        *LoginTokenService
	PasswordReset *PasswordResetService
	Papers        *PaperService
	Reviews       *ReviewService
	Invitations   *InvitationService
}

func New(d Deps) *Services {
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	tokens := NewLoginTokenService(d.DB, d.LoginTokenDays)
	tokens.now = d.Now
	tokens.notifier = d.Notifier
	tokens.siteName = d.SiteName
	tokens.baseURL = d.BaseURL

	reset := NewPasswordResetService(d.DB, d.Notifier, d.BaseURL)
	reset.now = d.Now

	tr := &transitions{db: d.DB, notifier: d.Notifier, metrics: d.Metrics}
	return &Services{
		Accounts:      NewAccountService(d.DB),
		Tokens:        tokens,
		PasswordReset: reset,
		Papers:        &PaperService{db: d.DB, storage: d.Storage, notifier: d.Notifier, metrics: d.Metrics, transitions: tr, maxUpload: d.MaxUploadBytes},
		Reviews:       &ReviewService{db: d.DB, storage: d.Storage, notifier: d.Notifier, metrics: d.Metrics, transitions: tr, maxUpload: d.MaxUploadBytes},
		Invitations:   &InvitationService{db: d.DB, notifier: d.Notifier, tokens: tokens, siteName: d.SiteName, baseURL: d.BaseURL},
	}
}

// transition is a status change committed inside a transaction, reported after commit.
type transition struct {
	paper    *models.Paper
	from, to models.PaperStatus
}

type transitions struct {
	db       *gorm.DB
	notifier Notifier
	metrics  Metrics
}

// applyTx moves paper to status and records the change. It returns nil when the
// status is already current.
func (t *transitions) applyTx(tx *gorm.DB, paper *models.Paper, status models.PaperStatus, actorID int, reason string) (*transition, error) {
	if paper.Status == status {
		return nil, nil
	}
	from := paper.Status
	if err := tx.Model(&models.Paper{}).Where("paper_id = ?", paper.PaperID).Update("status", status).Error; err != nil {
		return nil, err
	}

	history := &models.PaperStatusHistory{
		PaperID:   paper.PaperID,
		OldStatus: from,
		NewStatus: status,
		Reason:    reason,
	}
	if actorID != 0 {
		history.ChangedBy = &actorID
	}
	if err := tx.Create(history).Error; err != nil {
		return nil, err
	}

	paper.Status = status
	return &transition{paper: paper, from: from, to: status}, nil
}

// committed reports a transition once its transaction has succeeded.
func (t *transitions) committed(ctx context.Context, tr *transition) {
	if tr == nil {
		return
	}
	t.metrics.StatusTransition(tr.from, tr.to)
	ctx, cancel := afterCommit(ctx)
	defer cancel()
	broadcast(ctx, t.notifier, statusChangedNotice(staffRecipients(ctx, t.db), tr.paper, tr.from, tr.to))
}

// notifyTimeout bounds the notices sent once a change is committed.
const notifyTimeout = 30 * time.Second

// afterCommit keeps the request's values but drops its cancellation, so notices
// about a committed change still go out when the client has gone away.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
}
