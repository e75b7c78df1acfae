package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"acrevista-api/models"
	"acrevista-api/utils"

	"gorm.io/gorm"
)

type ReviewInput struct {
	PaperID             int                   `json:"paper" form:"paper" validate:"required,gt=0"`
	Appropriate         string                `json:"appropriate" form:"appropriate" validate:"required"`
	Recommendation      string                `json:"recommendation" form:"recommendation" validate:"required"`
	Comment             string                `json:"comment" form:"comment" validate:"required"`
	ConfidentialComment string                `json:"confidential_comment" form:"confidential_comment"`
	AdditionalFile      *multipart.FileHeader `json:"-" form:"-" validate:"-"`
}

// ReviewPatch updates only the fields that are set.
type ReviewPatch struct {
	Appropriate         *string `json:"appropriate" form:"appropriate"`
	Recommendation      *string `json:"recommendation" form:"recommendation"`
	Comment             *string `json:"comment" form:"comment"`
	ConfidentialComment *string `json:"confidential_comment" form:"confidential_comment"`
}

type ReviewService struct {
	db          *gorm.DB
	storage     Storage
	notifier    Notifier
	metrics     Metrics
	transitions *transitions
	maxUpload   int64
}

// Create stores actor's review of a paper. The editor_review flag is decided
// here from the paper's current editor; an editor review immediately decides
// the paper status.
func (s *ReviewService) Create(ctx context.Context, actor *models.User, in ReviewInput) (*models.Review, error) {
	in.Comment = utils.SanitizeInput(in.Comment)
	in.ConfidentialComment = utils.SanitizeInput(in.ConfidentialComment)

	fields := utils.ValidateStruct(in)
	appropriate, recommendation := parseOutcome(fields, in.Appropriate, in.Recommendation)
	var upload *Upload
	if in.AdditionalFile != nil {
		u, err := ValidateUpload("additional_file", in.AdditionalFile, s.maxUpload, SupplementaryTypes)
		if err != nil {
			mergeInto(fields, err)
		}
		upload = u
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	paper, err := loadPaper(ctx, s.db, in.PaperID)
	if errors.Is(err, ErrNotFound) {
		return nil, fieldError("paper", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.PaperID))
	}
	if err != nil {
		return nil, err
	}
	if !CanReview(actor, paper) {
		return nil, ErrForbidden
	}
	if exists, err := s.hasReviewed(ctx, actor.UserID, paper.PaperID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		UserID:              actor.UserID,
		PaperID:             paper.PaperID,
		EditorReview:        paper.IsEditor(actor.UserID),
		Appropriate:         appropriate,
		Recommendation:      recommendation,
		Comment:             in.Comment,
		ConfidentialComment: in.ConfidentialComment,
	}
	if upload != nil {
		key, err := upload.store(ctx, s.storage, "reviews")
		if err != nil {
			return nil, err
		}
		review.AdditionalFile = &key
	}

	var tr *transition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("create review: %w", err)
		}
		if review.EditorReview {
			var err error
			tr, err = s.transitions.applyTx(tx, paper, StatusAfterEditorReview(appropriate, recommendation), actor.UserID, "editor review")
			return err
		}
		if paper.Editor != nil && paper.Editor.Email != "" {
			return direct(ctx, s.notifier, reviewAddedNotice(paper.Editor.Email, paper))
		}
		return nil
	})
	if err != nil {
		if review.AdditionalFile != nil {
			_ = s.storage.Delete(ctx, *review.AdditionalFile)
		}
		return nil, err
	}

	s.metrics.ReviewSubmitted(review.EditorReview)
	s.transitions.committed(ctx, tr)
	review.User = actor
	review.Paper = paper
	return review, nil
}

func parseOutcome(fields utils.FieldErrors, rawAppropriate, rawRecommendation string) (models.Appropriateness, models.Recommendation) {
	var appropriate models.Appropriateness
	var recommendation models.Recommendation
	var err error
	if rawAppropriate != "" {
		if appropriate, err = models.ParseAppropriateness(rawAppropriate); err != nil {
			fields.Add("appropriate", err.Error())
		}
	}
	if rawRecommendation != "" {
		if recommendation, err = models.ParseRecommendation(rawRecommendation); err != nil {
			fields.Add("recommendation", err.Error())
		}
	}
	return appropriate, recommendation
}

func (s *ReviewService) hasReviewed(ctx context.Context, userID, paperID int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		Count(&n).Error
	return n > 0, err
}

// GetOwn returns actor's review of a paper.
func (s *ReviewService) GetOwn(ctx context.Context, actor *models.User, paperID int) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Preload("User").Preload("Paper").
		Where("user_id = ? AND paper_id = ?", actor.UserID, paperID).
		First(&review).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &review, nil
}

// UpdateOwn applies patch to actor's review. When the review is an editor
// review the paper status is decided again from the new outcome.
func (s *ReviewService) UpdateOwn(ctx context.Context, actor *models.User, paperID int, patch ReviewPatch) (*models.Review, error) {
	review, err := s.GetOwn(ctx, actor, paperID)
	if err != nil {
		return nil, err
	}

	fields := utils.FieldErrors{}
	updates := map[string]interface{}{}
	rawAppropriate, rawRecommendation := "", ""
	if patch.Appropriate != nil {
		rawAppropriate = *patch.Appropriate
		if rawAppropriate == "" {
			fields.Add("appropriate", "This field may not be blank.")
		}
	}
	if patch.Recommendation != nil {
		rawRecommendation = *patch.Recommendation
		if rawRecommendation == "" {
			fields.Add("recommendation", "This field may not be blank.")
		}
	}
	appropriate, recommendation := parseOutcome(fields, rawAppropriate, rawRecommendation)
	if patch.Comment != nil {
		v := utils.SanitizeInput(*patch.Comment)
		if v == "" {
			fields.Add("comment", "This field may not be blank.")
		}
		updates["comment"] = v
	}
	if patch.ConfidentialComment != nil {
		updates["confidential_comment"] = utils.SanitizeInput(*patch.ConfidentialComment)
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}
	if appropriate != "" {
		updates["appropriate"] = appropriate
		review.Appropriate = appropriate
	}
	if recommendation != "" {
		updates["recommendation"] = recommendation
		review.Recommendation = recommendation
	}
	if len(updates) == 0 {
		return review, nil
	}

	var tr *transition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Review{}).Where("review_id = ?", review.ReviewID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		if !review.EditorReview {
			return nil
		}
		var paper models.Paper
		if err := tx.First(&paper, "paper_id = ?", review.PaperID).Error; err != nil {
			return notFoundOr(err)
		}
		var err error
		tr, err = s.transitions.applyTx(tx, &paper, StatusAfterEditorReview(review.Appropriate, review.Recommendation), actor.UserID, "editor review updated")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.transitions.committed(ctx, tr)
	return s.GetOwn(ctx, actor, paperID)
}

// ListForPaper returns every review of a paper to its editor and to staff.
func (s *ReviewService) ListForPaper(ctx context.Context, actor *models.User, paperID int) ([]models.Review, error) {
	paper, err := loadPaper(ctx, s.db, paperID)
	if err != nil {
		return nil, err
	}
	if !CanManageReviews(actor, paper) {
		return nil, ErrForbidden
	}

	var reviews []models.Review
	err = s.db.WithContext(ctx).Preload("User").
		Where("paper_id = ?", paperID).
		Order("review_id").
		Find(&reviews).Error
	for i := range reviews {
		reviews[i].Paper = paper
	}
	return reviews, err
}

// EditorReview returns the first editor review of a paper, or ErrNotFound.
func (s *ReviewService) EditorReview(ctx context.Context, actor *models.User, paperID int) (*models.Review, error) {
	paper, err := loadPaper(ctx, s.db, paperID)
	if err != nil {
		return nil, err
	}
	if !CanViewPaper(actor, paper) {
		return nil, ErrForbidden
	}

	var review models.Review
	err = s.db.WithContext(ctx).Preload("User").
		Where("paper_id = ? AND editor_review = ?", paperID, true).
		Order("review_id").
		First(&review).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	review.Paper = paper
	return &review, nil
}

// OpenAttachment streams a review's additional file to its author, the
// paper's editor or staff.
func (s *ReviewService) OpenAttachment(ctx context.Context, actor *models.User, reviewID int) (io.ReadCloser, string, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "review_id = ?", reviewID).Error; err != nil {
		return nil, "", notFoundOr(err)
	}
	paper, err := loadPaper(ctx, s.db, review.PaperID)
	if err != nil {
		return nil, "", err
	}
	if review.UserID != actor.UserID && !CanManageReviews(actor, paper) {
		return nil, "", ErrForbidden
	}
	if review.AdditionalFile == nil {
		return nil, "", ErrNotFound
	}
	rc, err := s.storage.Open(ctx, *review.AdditionalFile)
	if err != nil {
		return nil, "", err
	}
	return rc, path.Base(*review.AdditionalFile), nil
}
