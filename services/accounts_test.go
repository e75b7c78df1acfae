package services

import (
	"context"
	"testing"

	"acrevista-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesProfile(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "  author@Example.COM ")

	assert.Equal(t, "author@example.com", user.Email)
	assert.Equal(t, user.Email, user.Username)
	assert.NotEqual(t, testPassword, user.Password)
	require.NotNil(t, user.Profile)

	profile, err := f.svc.Accounts.OwnProfile(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTitle, profile.Title)
	assert.Equal(t, models.DefaultCountry, profile.Country)
	assert.Equal(t, user.Profile.ProfileID, profile.ProfileID)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "taken@example.com")

	_, err := f.svc.Accounts.Register(ctx, RegisterInput{
		Email: "short@example.com", Password: "abc", FirstName: "A", LastName: "B",
	})
	fields := fieldsOf(t, err)
	assert.Len(t, fields, 1)
	assert.Equal(t, []string{"Ensure this field has at least 8 characters."}, fields["password"])

	_, err = f.svc.Accounts.Register(ctx, RegisterInput{
		Email: "taken@EXAMPLE.com", Password: testPassword, FirstName: "A", LastName: "B",
	})
	fields = fieldsOf(t, err)
	assert.Len(t, fields, 1)
	assert.Equal(t, []string{"This field must be unique."}, fields["email"])

	_, err = f.svc.Accounts.Register(ctx, RegisterInput{})
	fields = fieldsOf(t, err)
	for _, name := range []string{"email", "password", "first_name", "last_name"} {
		assert.Contains(t, fields, name)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")

	got, err := f.svc.Accounts.Authenticate(ctx, "author@EXAMPLE.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)

	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Accounts.Authenticate(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.db.Model(&models.User{}).Where("user_id = ?", user.UserID).Update("is_active", false).Error)
	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")

	err := f.svc.Accounts.ChangePassword(ctx, user, "not-my-password", "newpassword1")
	assert.Contains(t, fieldsOf(t, err), "old_password")

	err = f.svc.Accounts.ChangePassword(ctx, user, testPassword, "short")
	assert.Contains(t, fieldsOf(t, err), "new_password")

	require.NoError(t, f.svc.Accounts.ChangePassword(ctx, user, testPassword, "newpassword1"))
	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestSetPasswordEnforcesStrength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")

	err := f.svc.Accounts.SetPassword(ctx, user, "short")
	assert.Contains(t, fieldsOf(t, err), "password")
	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", testPassword)
	assert.NoError(t, err)

	require.NoError(t, f.svc.Accounts.SetPassword(ctx, user, "replacement1"))
	_, err = f.svc.Accounts.Authenticate(ctx, "author@example.com", "replacement1")
	assert.NoError(t, err)
}

func TestChangeEmailRejectsTakenAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")
	f.user(t, "other@example.com")

	err := f.svc.Accounts.ChangeEmail(ctx, user, "other@example.com")
	assert.Contains(t, fieldsOf(t, err), "email")

	require.NoError(t, f.svc.Accounts.ChangeEmail(ctx, user, "renamed@example.com"))
	_, err = f.svc.Accounts.Authenticate(ctx, "renamed@example.com", testPassword)
	assert.NoError(t, err)
}

func TestUpdateProfileIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "author@example.com")

	profile, err := f.svc.Accounts.UpdateProfile(ctx, user, user.UserID, ProfilePatch{Affiliation: ptrTo("University")})
	require.NoError(t, err)
	assert.Equal(t, "University", profile.Affiliation)

	profile, err = f.svc.Accounts.UpdateProfile(ctx, user, user.UserID, ProfilePatch{Country: ptrTo("Ukraine")})
	require.NoError(t, err)
	assert.Equal(t, models.Country("Ukraine"), profile.Country)
	assert.Equal(t, models.DefaultTitle, profile.Title)
	assert.Equal(t, "University", profile.Affiliation)
}

func TestUpdateProfileRejectsUnknownChoices(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "author@example.com")

	_, err := f.svc.Accounts.UpdateProfile(context.Background(), user, user.UserID, ProfilePatch{
		Title:   ptrTo("Sir"),
		Country: ptrTo("Atlantis"),
	})
	fields := fieldsOf(t, err)
	require.Len(t, fields["title"], 1)
	assert.Contains(t, fields["title"][0], "Prof")
	assert.Contains(t, fields, "country")
}

func TestProfileAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "author@example.com")
	other := f.user(t, "other@example.com")
	staff := f.staff(t, "staff@example.com")

	_, err := f.svc.Accounts.GetProfile(ctx, other, owner.UserID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Accounts.GetProfile(ctx, staff, owner.UserID)
	assert.NoError(t, err)

	_, err = f.svc.Accounts.GetProfile(ctx, owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileIsKeyedByUserID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.user(t, "first@example.com")
	staff := f.staff(t, "staff@example.com")

	late := &models.User{UserID: 40, Username: "late@example.com", Email: "late@example.com", IsActive: true}
	require.NoError(t, createUserTx(f.db, late))
	require.NotEqual(t, late.UserID, late.Profile.ProfileID)

	profile, err := f.svc.Accounts.GetProfile(ctx, late, late.UserID)
	require.NoError(t, err)
	assert.Equal(t, late.Profile.ProfileID, profile.ProfileID)
	assert.Equal(t, late.UserID, profile.UserID)

	profile, err = f.svc.Accounts.UpdateProfile(ctx, staff, first.UserID, ProfilePatch{Phone: ptrTo("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, first.UserID, profile.UserID)
	assert.Equal(t, "555-0100", profile.Phone)

	_, err = f.svc.Accounts.GetProfile(ctx, late, late.Profile.ProfileID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice@example.com")
	f.user(t, "bob@example.org")

	users, err := f.svc.Accounts.SearchUsers(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@example.com", users[0].Email)

	users, err = f.svc.Accounts.SearchUsers(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = f.svc.Accounts.SearchUsers(ctx, " ")
	assert.Contains(t, fieldsOf(t, err), "email")
}

func TestCanSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@example.com")
	staff := f.staff(t, "staff@example.com")

	ok, err := f.svc.Accounts.CanSearchUsers(ctx, author)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Accounts.CanSearchUsers(ctx, staff)
	require.NoError(t, err)
	assert.True(t, ok)

	// An editor of a paper under review may look up reviewers.
	editor := f.user(t, "editor@example.com")
	paper := f.paper(t, author)
	require.NoError(t, f.db.Model(&models.Paper{}).Where("paper_id = ?", paper.PaperID).
		Updates(map[string]interface{}{"editor_id": editor.UserID, "status": models.StatusUnderReview}).Error)
	ok, err = f.svc.Accounts.CanSearchUsers(ctx, editor)
	require.NoError(t, err)
	assert.True(t, ok)
}

func ptrTo(s string) *string {
	return &s
}
