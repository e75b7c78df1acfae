package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"acrevista-api/config"
	"acrevista-api/models"
	"acrevista-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitInput struct {
	Title         string                `json:"title" form:"title" validate:"required,max=64"`
	Description   string                `json:"description" form:"description" validate:"required,max=2000"`
	Authors       string                `json:"authors" form:"authors" validate:"required"`
	Manuscript    *multipart.FileHeader `json:"-" form:"-" validate:"-"`
	CoverLetter   *multipart.FileHeader `json:"-" form:"-" validate:"-"`
	Supplementary *multipart.FileHeader `json:"-" form:"-" validate:"-"`
}

type PaperService struct {
	db          *gorm.DB
	storage     Storage
	notifier    Notifier
	metrics     Metrics
	transitions *transitions
	maxUpload   int64
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Editor").Preload("Reviewers")
}

// Submit validates and stores the attachments, then creates the paper in the
// processing state.
func (s *PaperService) Submit(ctx context.Context, author *models.User, in SubmitInput) (*models.Paper, error) {
	in.Title = utils.SanitizeInput(in.Title)
	in.Description = utils.SanitizeInput(in.Description)
	in.Authors = utils.SanitizeInput(in.Authors)

	fields := utils.ValidateStruct(in)
	uploads := map[models.FileKind]*Upload{}
	check := func(kind models.FileKind, header *multipart.FileHeader, allowed []string) {
		if header == nil {
			if kind != models.FileSupplementary {
				fields.Add(string(kind), "No file was submitted.")
			}
			return
		}
		u, err := ValidateUpload(string(kind), header, s.maxUpload, allowed)
		if err != nil {
			mergeInto(fields, err)
			return
		}
		uploads[kind] = u
	}
	check(models.FileManuscript, in.Manuscript, DocumentTypes)
	check(models.FileCoverLetter, in.CoverLetter, DocumentTypes)
	check(models.FileSupplementary, in.Supplementary, SupplementaryTypes)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	keys := map[models.FileKind]string{}
	cleanup := func() {
		for _, key := range keys {
			if err := s.storage.Delete(ctx, key); err != nil {
				config.Log.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(err))
			}
		}
	}
	for kind, u := range uploads {
		key, err := u.store(ctx, s.storage, "papers")
		if err != nil {
			cleanup()
			return nil, err
		}
		keys[kind] = key
	}

	paper := &models.Paper{
		UserID:      author.UserID,
		Title:       in.Title,
		Description: in.Description,
		Authors:     in.Authors,
		Status:      models.StatusProcessing,
		Manuscript:  keys[models.FileManuscript],
		CoverLetter: keys[models.FileCoverLetter],
	}
	if key, ok := keys[models.FileSupplementary]; ok {
		paper.Supplementary = &key
	}
	if err := s.db.WithContext(ctx).Create(paper).Error; err != nil {
		cleanup()
		return nil, fmt.Errorf("create paper: %w", err)
	}
	paper.User = author

	s.metrics.PaperSubmitted()
	notifyCtx, cancel := afterCommit(ctx)
	defer cancel()
	broadcast(notifyCtx, s.notifier, paperSubmittedNotice(staffRecipients(notifyCtx, s.db), paper))
	return paper, nil
}

func mergeInto(fields utils.FieldErrors, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		fields.Merge(verr.Fields)
		return
	}
	fields.Add("non_field_errors", err.Error())
}

// Count returns the number of submitted papers.
func (s *PaperService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Paper{}).Count(&n).Error
	return n, err
}

func (s *PaperService) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Paper, error) {
	var papers []models.Paper
	q := withRelations(s.db.WithContext(ctx))
	if scope != nil {
		q = scope(q)
	}
	err := q.Order("created DESC, paper_id DESC").Find(&papers).Error
	return papers, err
}

// ListSubmitted returns the papers authored by user.
func (s *PaperService) ListSubmitted(ctx context.Context, user *models.User) ([]models.Paper, error) {
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", user.UserID)
	})
}

// ListAll is staff only.
func (s *PaperService) ListAll(ctx context.Context, actor *models.User) ([]models.Paper, error) {
	if !IsStaff(actor, nil) {
		return nil, ErrForbidden
	}
	return s.list(ctx, nil)
}

// ListWithEditor returns every paper that has an editor. Staff only.
func (s *PaperService) ListWithEditor(ctx context.Context, actor *models.User) ([]models.Paper, error) {
	if !IsStaff(actor, nil) {
		return nil, ErrForbidden
	}
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("editor_id IS NOT NULL")
	})
}

// ListWithoutEditor returns the papers still waiting for an editor. Staff only.
func (s *PaperService) ListWithoutEditor(ctx context.Context, actor *models.User) ([]models.Paper, error) {
	if !IsStaff(actor, nil) {
		return nil, ErrForbidden
	}
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("editor_id IS NULL")
	})
}

// ListEditedBy returns the papers user edits.
func (s *PaperService) ListEditedBy(ctx context.Context, user *models.User) ([]models.Paper, error) {
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("editor_id = ?", user.UserID)
	})
}

// ListReviewing returns the papers user was asked to review.
func (s *PaperService) ListReviewing(ctx context.Context, user *models.User) ([]models.Paper, error) {
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("paper_id IN (?)",
			s.db.Table("paper_reviewers").Select("paper_id").Where("user_id = ?", user.UserID))
	})
}

// Get loads a paper with its author, editor and reviewers.
func (s *PaperService) Get(ctx context.Context, paperID int) (*models.Paper, error) {
	return loadPaper(ctx, s.db, paperID)
}

func loadPaper(ctx context.Context, db *gorm.DB, paperID int) (*models.Paper, error) {
	var paper models.Paper
	if err := withRelations(db.WithContext(ctx)).First(&paper, "paper_id = ?", paperID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &paper, nil
}

// Detail returns a paper to its author, editor, reviewers and staff.
func (s *PaperService) Detail(ctx context.Context, actor *models.User, paperID int) (*models.Paper, error) {
	paper, err := s.Get(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if !CanViewPaper(actor, paper) {
		return nil, ErrForbidden
	}
	return paper, nil
}

// History lists the status transitions of a paper, oldest first.
func (s *PaperService) History(ctx context.Context, actor *models.User, paperID int) ([]models.PaperStatusHistory, error) {
	if _, err := s.Detail(ctx, actor, paperID); err != nil {
		return nil, err
	}
	var rows []models.PaperStatusHistory
	err := s.db.WithContext(ctx).Where("paper_id = ?", paperID).Order("history_id").Find(&rows).Error
	return rows, err
}

// SetEditor makes the staff member actor the paper's editor.
func (s *PaperService) SetEditor(ctx context.Context, actor *models.User, paperID int) (*models.Paper, error) {
	return s.changeEditor(ctx, actor, paperID, &actor.UserID)
}

// ClearEditor removes the paper's editor.
func (s *PaperService) ClearEditor(ctx context.Context, actor *models.User, paperID int) (*models.Paper, error) {
	return s.changeEditor(ctx, actor, paperID, nil)
}

func (s *PaperService) changeEditor(ctx context.Context, actor *models.User, paperID int, editorID *int) (*models.Paper, error) {
	if !IsStaff(actor, nil) {
		return nil, ErrForbidden
	}

	var tr *transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paper models.Paper
		if err := tx.First(&paper, "paper_id = ?", paperID).Error; err != nil {
			return notFoundOr(err)
		}

		hadEditor := paper.HasEditor()
		if err := tx.Model(&models.Paper{}).Where("paper_id = ?", paperID).Update("editor_id", editorID).Error; err != nil {
			return fmt.Errorf("update editor: %w", err)
		}
		paper.EditorID = editorID

		next := StatusAfterEditorChange(paper.Status, hadEditor, editorID != nil)
		reason := "editor assigned"
		if editorID == nil {
			reason = "editor removed"
		}
		var err error
		tr, err = s.transitions.applyTx(tx, &paper, next, actor.UserID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.transitions.committed(ctx, tr)
	return s.Get(ctx, paperID)
}

// AddReviewer adds userID to the paper's reviewers. Staff only.
func (s *PaperService) AddReviewer(ctx context.Context, actor *models.User, paperID, userID int) (*models.Paper, error) {
	return s.changeReviewer(ctx, actor, paperID, userID, true)
}

// RemoveReviewer removes userID from the paper's reviewers. Staff only.
func (s *PaperService) RemoveReviewer(ctx context.Context, actor *models.User, paperID, userID int) (*models.Paper, error) {
	return s.changeReviewer(ctx, actor, paperID, userID, false)
}

func (s *PaperService) changeReviewer(ctx context.Context, actor *models.User, paperID, userID int, add bool) (*models.Paper, error) {
	if !IsStaff(actor, nil) {
		return nil, ErrForbidden
	}
	paper, err := s.Get(ctx, paperID)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError("user", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", userID))
		}
		return nil, err
	}

	if add {
		err = addReviewerTx(s.db.WithContext(ctx), paper, &user)
	} else {
		err = s.db.WithContext(ctx).Model(paper).Association("Reviewers").Delete(&user)
	}
	if err != nil {
		return nil, fmt.Errorf("update reviewers: %w", err)
	}
	return s.Get(ctx, paperID)
}

func addReviewerTx(tx *gorm.DB, paper *models.Paper, user *models.User) error {
	if paper.HasReviewer(user.UserID) {
		return nil
	}
	if err := tx.Model(paper).Association("Reviewers").Append(user); err != nil {
		return err
	}
	return nil
}

// OpenFile streams one of the paper's attachments to anyone allowed to view the paper.
func (s *PaperService) OpenFile(ctx context.Context, actor *models.User, paperID int, kind models.FileKind) (io.ReadCloser, string, error) {
	paper, err := s.Detail(ctx, actor, paperID)
	if err != nil {
		return nil, "", err
	}
	key := paper.FileKey(kind)
	if key == "" {
		return nil, "", ErrNotFound
	}
	rc, err := s.storage.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, path.Base(key), nil
}
