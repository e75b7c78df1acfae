package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"testing"

	"acrevista-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invitationToken extracts the token from the accept link of the last invitation mail.
func invitationToken(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	sent := n.events(EventReviewInvitation)
	require.NotEmpty(t, sent)
	link, err := url.Parse(sent[len(sent)-1].ButtonURL)
	require.NoError(t, err)
	return path.Base(path.Dir(link.Path))
}

func TestInvitationAcceptFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	inv, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.State())
	assert.Equal(t, models.PaperName(paper.PaperID), inv.Name)
	assert.Equal(t, fmt.Sprintf("http://testserver/journal/paper/%d", paper.PaperID), inv.URL)

	sent := f.notifier.events(EventReviewInvitation)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"guest@example.com"}, sent[0].Recipients)
	assert.Contains(t, sent[0].Footer, f.svc.Invitations.RejectURL(inv.Token))
	assert.Equal(t, inv.Token, invitationToken(t, f.notifier))

	redirect, err := f.svc.Invitations.Accept(ctx, inv.Token)
	require.NoError(t, err)
	target, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/journal/paper/%d", paper.PaperID), target.Path)
	loginToken := target.Query().Get("token")
	require.NotEmpty(t, loginToken)

	guest, err := f.svc.Tokens.Lookup(ctx, loginToken)
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", guest.Email)
	assert.Empty(t, guest.Password)

	got, err := f.svc.Papers.Get(ctx, paper.PaperID)
	require.NoError(t, err)
	assert.True(t, got.HasReviewer(guest.UserID))

	again, err := f.svc.Invitations.Accept(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, redirect, again)

	_, err = f.svc.Invitations.Reject(ctx, inv.Token)
	assert.ErrorIs(t, err, ErrInvitationClosed)

	invitations, err := f.svc.Invitations.ListForPaper(ctx, staff, paper.PaperID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, models.InvitationAccepted, invitations[0].State())
}

func TestInvitationAcceptReusesExistingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	reviewer := f.user(t, "reviewer@example.com")
	paper := f.paper(t, author)

	inv, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "reviewer@example.com", PaperID: paper.PaperID, URL: "/journal/review"})
	require.NoError(t, err)
	assert.Equal(t, "http://testserver/journal/review", inv.URL)

	earlier, err := f.svc.Tokens.Issue(ctx, reviewer.UserID)
	require.NoError(t, err)

	redirect, err := f.svc.Invitations.Accept(ctx, inv.Token)
	require.NoError(t, err)
	target, err := url.Parse(redirect)
	require.NoError(t, err)
	minted := target.Query().Get("token")
	assert.NotEqual(t, earlier.Token, minted)

	_, err = f.svc.Tokens.Lookup(ctx, earlier.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	again, err := f.svc.Invitations.Accept(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, redirect, again)

	got, err := f.svc.Papers.Get(ctx, paper.PaperID)
	require.NoError(t, err)
	require.Len(t, got.Reviewers, 1)
	assert.Equal(t, reviewer.UserID, got.Reviewers[0].UserID)
}

func TestInvitationRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	inv, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.NoError(t, err)

	redirect, err := f.svc.Invitations.Reject(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "/", redirect)

	_, err = f.svc.Invitations.Reject(ctx, inv.Token)
	assert.NoError(t, err)

	redirect, err = f.svc.Invitations.Accept(ctx, inv.Token)
	assert.ErrorIs(t, err, ErrInvitationClosed)
	assert.Equal(t, "/", redirect)

	_, err = f.svc.Accounts.GetUserByEmail(ctx, "guest@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	// A rejected invitation no longer blocks a new one.
	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	assert.NoError(t, err)
}

func TestInvitationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	_, err := f.svc.Invitations.Invite(ctx, author, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID, URL: "https://elsewhere.example.com/x"})
	assert.Contains(t, fieldsOf(t, err), "url")

	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "not-an-email", PaperID: paper.PaperID})
	assert.Contains(t, fieldsOf(t, err), "email")

	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.NoError(t, err)
	_, err = f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	assert.ErrorIs(t, err, ErrAlreadyInvited)

	_, err = f.svc.Invitations.Accept(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationMailFailureKeepsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)
	f.notifier.fail = errors.New("smtp unavailable")

	_, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.ErrorIs(t, err, ErrDeliveryFailed)

	var count int64
	require.NoError(t, f.db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCancelInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.staff(t, "staff@example.com")
	author := f.user(t, "author@example.com")
	paper := f.paper(t, author)

	inv, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Invitations.Cancel(ctx, author, inv.InvitationID), ErrForbidden)
	require.NoError(t, f.svc.Invitations.Cancel(ctx, staff, inv.InvitationID))
	assert.ErrorIs(t, f.svc.Invitations.Cancel(ctx, staff, inv.InvitationID), ErrNotFound)

	accepted, err := f.svc.Invitations.Invite(ctx, staff, InviteInput{Email: "guest@example.com", PaperID: paper.PaperID})
	require.NoError(t, err)
	_, err = f.svc.Invitations.Accept(ctx, accepted.Token)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Invitations.Cancel(ctx, staff, accepted.InvitationID), ErrInvitationClosed)
}
