package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"acrevista-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetKey(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	sent := n.events(EventPasswordReset)
	require.NotEmpty(t, sent)
	link, err := url.Parse(sent[len(sent)-1].ButtonURL)
	require.NoError(t, err)
	assert.Equal(t, "/account/password-reset/confirm", link.Path)
	return link.Query().Get("key")
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "author@example.com")

	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "127.0.0.1", "test"))
	key := resetKey(t, f.notifier)
	require.NotEmpty(t, key)

	err := f.svc.PasswordReset.Reset(ctx, key, "brandnew123", "different123")
	assert.Contains(t, fieldsOf(t, err), "confirm_password")

	err = f.svc.PasswordReset.Reset(ctx, key, "short", "short")
	assert.Contains(t, fieldsOf(t, err), "new_password")

	require.NoError(t, f.svc.PasswordReset.Reset(ctx, key, "brandnew123", "brandnew123"))
	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", "brandnew123")
	assert.NoError(t, err)

	err = f.svc.PasswordReset.Reset(ctx, key, "another123", "another123")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordResetKeepsUserAgentWhole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")

	agent := strings.Repeat("a", 254) + "日本語"
	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "127.0.0.1", agent))

	var token models.PasswordResetToken
	require.NoError(t, f.db.Where("user_id = ?", user.UserID).First(&token).Error)
	assert.True(t, utf8.ValidString(token.UserAgent))
	assert.Equal(t, strings.Repeat("a", 254)+"日", token.UserAgent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.Equal(t, "", truncate("日本語", 0))
}

func TestPasswordResetSupersedesOlderLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "author@example.com")

	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "", ""))
	first := resetKey(t, f.notifier)
	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "", ""))
	second := resetKey(t, f.notifier)

	assert.ErrorIs(t, f.svc.PasswordReset.Reset(ctx, first, "brandnew123", "brandnew123"), ErrTokenInvalid)
	assert.NoError(t, f.svc.PasswordReset.Reset(ctx, second, "brandnew123", "brandnew123"))
}

func TestPasswordResetLinkExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "author@example.com")

	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "", ""))
	key := resetKey(t, f.notifier)

	f.svc.PasswordReset.now = func() time.Time { return f.now.Add(time.Hour) }
	assert.ErrorIs(t, f.svc.PasswordReset.Reset(ctx, key, "brandnew123", "brandnew123"), ErrTokenInvalid)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.PasswordReset.RequestReset(ctx, "nobody@example.com", "", ""))
	assert.Empty(t, f.notifier.events(EventPasswordReset))

	err := f.svc.PasswordReset.RequestReset(ctx, "not-an-email", "", "")
	assert.Contains(t, fieldsOf(t, err), "email")
}

func TestPasswordResetMailFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "author@example.com")
	f.notifier.fail = errors.New("smtp unavailable")

	err := f.svc.PasswordReset.RequestReset(ctx, "author@example.com", "", "")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	var count int64
	require.NoError(t, f.db.Model(&models.PasswordResetToken{}).Count(&count).Error)
	assert.Zero(t, count)
}
