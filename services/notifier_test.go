package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"acrevista-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to      []string
	subject string
	html    string
	err     error
}

func (s *fakeSender) SendMail(to []string, subject, html string) error {
	s.to, s.subject, s.html = to, subject, html
	return s.err
}

func TestMailNotifierRendersLayout(t *testing.T) {
	sender := &fakeSender{}
	n := NewMailNotifier(sender, "AC Revista")
	paper := &models.Paper{PaperID: 7, Title: "Graphs & <Trees>"}

	notice := invitationNotice("AC Revista", "guest@example.com", paper, "http://testserver/account/invite/abc/accept", "http://testserver/account/invite/abc/reject")
	require.NoError(t, n.Notify(context.Background(), notice))

	assert.Equal(t, []string{"guest@example.com"}, sender.to)
	assert.Equal(t, "Review requested!", sender.subject)
	assert.Contains(t, sender.html, `href="http://testserver/account/invite/abc/accept"`)
	assert.Contains(t, sender.html, `href="http://testserver/account/invite/abc/reject"`)
	assert.Contains(t, sender.html, "Graphs &amp; &lt;Trees&gt;")
	assert.NotContains(t, sender.html, "<Trees>")
	assert.Contains(t, sender.html, "The AC Revista team")
}

func TestDirectWrapsDeliveryFailure(t *testing.T) {
	smtpErr := errors.New("smtp unavailable")
	err := direct(context.Background(), &recordingNotifier{fail: smtpErr}, Notice{Event: EventReviewAdded})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, smtpErr)

	err = direct(context.Background(), nil, Notice{Event: EventReviewAdded})
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	assert.NoError(t, direct(context.Background(), &recordingNotifier{}, Notice{Event: EventReviewAdded}))
}

func TestBroadcastSwallowsFailures(t *testing.T) {
	rec := &recordingNotifier{fail: errors.New("smtp unavailable")}
	assert.NotPanics(t, func() {
		broadcast(context.Background(), rec, Notice{Event: EventPaperSubmitted, Recipients: []string{"staff@example.com"}})
		broadcast(context.Background(), nil, Notice{Event: EventPaperSubmitted, Recipients: []string{"staff@example.com"}})
	})

	rec = &recordingNotifier{}
	broadcast(context.Background(), rec, Notice{Event: EventPaperSubmitted})
	assert.Empty(t, rec.notices, "no recipients means nothing to send")
}

func TestAfterCommitOutlivesRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	kept, release := afterCommit(ctx)
	defer release()
	cancel()
	assert.Error(t, ctx.Err())
	assert.NoError(t, kept.Err())

	deadline, ok := kept.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(notifyTimeout), deadline, 5*time.Second)

	release()
	assert.ErrorIs(t, kept.Err(), context.Canceled)
}

func TestStatusChangedNoticeUsesLabels(t *testing.T) {
	paper := &models.Paper{Title: "On graphs"}
	notice := statusChangedNotice([]string{"staff@example.com"}, paper, models.StatusProcessing, models.StatusUnderReview)
	require.Len(t, notice.Paragraphs, 1)
	assert.True(t, strings.Contains(notice.Paragraphs[0], models.StatusUnderReview.Label()))
	assert.Equal(t, "On graphs - Status was changed.", notice.Subject)
}
