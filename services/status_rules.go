package services

import "acrevista-api/models"

// StatusAfterEditorChange applies the editor-assignment rule. Only two moves
// exist: processing -> under_review when an editor is set, and the reverse when
// the editor is cleared. Every other combination keeps the current status, so
// clearing the editor of a decided paper leaves the decision in place.
func StatusAfterEditorChange(current models.PaperStatus, hadEditor, hasEditor bool) models.PaperStatus {
	switch {
	case !hadEditor && hasEditor && current == models.StatusProcessing:
		return models.StatusUnderReview
	case hadEditor && !hasEditor && current == models.StatusUnderReview:
		return models.StatusProcessing
	}
	return current
}

// StatusAfterEditorReview maps the outcome of an editor review to the paper status.
// Only "appropriate" combined with "publish unaltered" accepts the paper.
func StatusAfterEditorReview(appropriate models.Appropriateness, recommendation models.Recommendation) models.PaperStatus {
	if appropriate == models.Appropriate && recommendation == models.PublishUnaltered {
		return models.StatusAccepted
	}
	return models.StatusPreliminaryReject
}
