package services

import "acrevista-api/models"

// Predicate decides whether actor may act on paper. Paper reviewers must be
// preloaded for IsReviewerOf to see them.
type Predicate func(actor *models.User, paper *models.Paper) bool

// Any allows the action when at least one predicate does.
func Any(preds ...Predicate) Predicate {
	return func(actor *models.User, paper *models.Paper) bool {
		for _, p := range preds {
			if p(actor, paper) {
				return true
			}
		}
		return false
	}
}

func IsStaff(actor *models.User, _ *models.Paper) bool {
	return actor != nil && actor.IsStaff
}

func IsEditorOf(actor *models.User, paper *models.Paper) bool {
	return actor != nil && paper != nil && paper.IsEditor(actor.UserID)
}

func IsReviewerOf(actor *models.User, paper *models.Paper) bool {
	return actor != nil && paper != nil && paper.HasReviewer(actor.UserID)
}

func IsAuthorOf(actor *models.User, paper *models.Paper) bool {
	return actor != nil && paper != nil && paper.UserID == actor.UserID
}

var (
	CanReview        = Any(IsReviewerOf, IsEditorOf, IsStaff)
	CanManageReviews = Any(IsEditorOf, IsStaff)
	CanInvite        = Any(IsEditorOf, IsStaff)
	CanViewPaper     = Any(IsAuthorOf, IsReviewerOf, IsEditorOf, IsStaff)
)

// OwnsProfile allows a user to read or edit their own profile; staff may edit any.
func OwnsProfile(actor *models.User, profileUserID int) bool {
	return actor != nil && (actor.UserID == profileUserID || actor.IsStaff)
}

// CanSeeConfidential reports whether viewer may read a review's confidential comment.
func CanSeeConfidential(viewer *models.User, paper *models.Paper, review *models.Review) bool {
	if viewer == nil {
		return false
	}
	return viewer.IsStaff || review.UserID == viewer.UserID || IsEditorOf(viewer, paper)
}
