package services

import (
	"context"
	"testing"

	"acrevista-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewInput(paperID int, appropriate models.Appropriateness, rec models.Recommendation) ReviewInput {
	return ReviewInput{
		PaperID:             paperID,
		Appropriate:         string(appropriate),
		Recommendation:      string(rec),
		Comment:             "Solid work.",
		ConfidentialComment: "Between us.",
	}
}

func TestReviewRequiresInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	reviewer := f.user(t, "reviewer@example.com")
	paper := f.paper(t, author)

	_, err := f.svc.Reviews.Create(ctx, reviewer, reviewInput(paper.PaperID, models.Appropriate, models.PublishMinorRevision))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Papers.AddReviewer(ctx, staff, paper.PaperID, reviewer.UserID)
	require.NoError(t, err)

	review, err := f.svc.Reviews.Create(ctx, reviewer, reviewInput(paper.PaperID, models.Appropriate, models.PublishMinorRevision))
	require.NoError(t, err)
	assert.False(t, review.EditorReview)
	assert.Equal(t, reviewer.UserID, review.UserID)

	_, err = f.svc.Reviews.Create(ctx, reviewer, reviewInput(paper.PaperID, models.Appropriate, models.PublishUnaltered))
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	got, err := f.svc.Papers.Get(ctx, paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestReviewNotifiesEditor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	reviewer := f.user(t, "reviewer@example.com")
	paper := f.paper(t, author)

	_, err := f.svc.Papers.SetEditor(ctx, staff, paper.PaperID)
	require.NoError(t, err)
	_, err = f.svc.Papers.AddReviewer(ctx, staff, paper.PaperID, reviewer.UserID)
	require.NoError(t, err)

	_, err = f.svc.Reviews.Create(ctx, reviewer, reviewInput(paper.PaperID, models.Appropriate, models.MajorRevision))
	require.NoError(t, err)

	sent := f.notifier.events(EventReviewAdded)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"staff@example.com"}, sent[0].Recipients)
}

func TestEditorReviewDecidesStatus(t *testing.T) {
	tests := []struct {
		name        string
		appropriate models.Appropriateness
		rec         models.Recommendation
		want        models.PaperStatus
	}{
		{"accept", models.Appropriate, models.PublishUnaltered, models.StatusAccepted},
		{"minor revision", models.Appropriate, models.PublishMinorRevision, models.StatusPreliminaryReject},
		{"not appropriate", models.NotAppropriate, models.PublishUnaltered, models.StatusPreliminaryReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			staff := f.staff(t, "staff@example.com")
			author := f.user(t, "author@example.com")
			paper := f.paper(t, author)
			_, err := f.svc.Papers.SetEditor(ctx, staff, paper.PaperID)
			require.NoError(t, err)

			review, err := f.svc.Reviews.Create(ctx, staff, reviewInput(paper.PaperID, tt.appropriate, tt.rec))
			require.NoError(t, err)
			assert.True(t, review.EditorReview)

			got, err := f.svc.Papers.Get(ctx, paper.PaperID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestUpdatingEditorReviewRedecides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)
	_, err := f.svc.Papers.SetEditor(ctx, staff, paper.PaperID)
	require.NoError(t, err)

	_, err = f.svc.Reviews.Create(ctx, staff, reviewInput(paper.PaperID, models.Appropriate, models.Reject))
	require.NoError(t, err)

	rec := string(models.PublishUnaltered)
	review, err := f.svc.Reviews.UpdateOwn(ctx, staff, paper.PaperID, ReviewPatch{Recommendation: &rec})
	require.NoError(t, err)
	assert.Equal(t, models.PublishUnaltered, review.Recommendation)
	assert.Equal(t, "Solid work.", review.Comment)

	got, err := f.svc.Papers.Get(ctx, paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)

	history, err := f.svc.Papers.History(ctx, staff, paper.PaperID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.StatusAccepted, history[2].NewStatus)
}

func TestReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	_, err := f.svc.Reviews.Create(ctx, staff, ReviewInput{
		PaperID:        paper.PaperID,
		Appropriate:    "maybe",
		Recommendation: "+3",
	})
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "appropriate")
	assert.Contains(t, fields, "recommendation")
	assert.Contains(t, fields, "comment")

	_, err = f.svc.Reviews.Create(ctx, staff, reviewInput(9999, models.Appropriate, models.Reject))
	assert.Contains(t, fieldsOf(t, err), "paper")

	_, err = f.svc.Reviews.Create(ctx, staff, reviewInput(paper.PaperID, models.Appropriate, models.Reject))
	require.NoError(t, err)
	blank := ""
	_, err = f.svc.Reviews.UpdateOwn(ctx, staff, paper.PaperID, ReviewPatch{Comment: &blank})
	assert.Contains(t, fieldsOf(t, err), "comment")
}

func TestReviewVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	reviewer := f.user(t, "reviewer@example.com")
	paper := f.paper(t, author)
	_, err := f.svc.Papers.AddReviewer(ctx, staff, paper.PaperID, reviewer.UserID)
	require.NoError(t, err)
	_, err = f.svc.Reviews.Create(ctx, reviewer, reviewInput(paper.PaperID, models.Appropriate, models.Reject))
	require.NoError(t, err)

	_, err = f.svc.Reviews.ListForPaper(ctx, author, paper.PaperID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Reviews.ListForPaper(ctx, reviewer, paper.PaperID)
	assert.ErrorIs(t, err, ErrForbidden)

	reviews, err := f.svc.Reviews.ListForPaper(ctx, staff, paper.PaperID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, reviewer.UserID, reviews[0].UserID)

	own, err := f.svc.Reviews.GetOwn(ctx, reviewer, paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, "Between us.", own.ConfidentialComment)

	_, err = f.svc.Reviews.EditorReview(ctx, author, paper.PaperID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	in := reviewInput(paper.PaperID, models.Appropriate, models.Reject)
	in.AdditionalFile = fileHeader(t, "additional_file", "notes.pdf", pdfSample)
	review, err := f.svc.Reviews.Create(ctx, staff, in)
	require.NoError(t, err)
	require.NotNil(t, review.AdditionalFile)

	rc, _, err := f.svc.Reviews.OpenAttachment(ctx, staff, review.ReviewID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, _, err = f.svc.Reviews.OpenAttachment(ctx, author, review.ReviewID)
	assert.ErrorIs(t, err, ErrForbidden)
}
