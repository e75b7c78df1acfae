package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"acrevista-api/models"
	"acrevista-api/utils"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=254"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name" validate:"required,max=30"`
	LastName  string `json:"last_name" form:"last_name" validate:"required,max=30"`
}

// NamePatch updates only the fields that are set.
type NamePatch struct {
	FirstName *string `json:"first_name" form:"first_name"`
	LastName  *string `json:"last_name" form:"last_name"`
}

// ProfilePatch updates only the fields that are set.
type ProfilePatch struct {
	Title       *string `json:"title" form:"title"`
	Phone       *string `json:"phone" form:"phone"`
	Country     *string `json:"country" form:"country"`
	Affiliation *string `json:"affiliation" form:"affiliation"`
}

type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// Register creates a user together with its profile.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, false)
}

// CreateStaff registers a staff account. Used by the admin CLI.
func (s *AccountService) CreateStaff(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, true)
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, staff bool) (*models.User, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.FirstName = utils.SanitizeInput(in.FirstName)
	in.LastName = utils.SanitizeInput(in.LastName)

	fields := utils.ValidateStruct(in)
	if in.Password == "" {
		fields.Add("password", "This field is required.")
	} else if ok, msg := utils.ValidatePassword(in.Password); !ok {
		fields.Add("password", msg)
	}
	if !fields.Has("email") {
		taken, err := s.emailTaken(ctx, s.db, in.Email, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("email", "This field must be unique.")
		}
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:  in.Email,
		Email:     in.Email,
		Password:  hashed,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsStaff:   staff,
		IsActive:  true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createUserTx(tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// createUserTx inserts user and its default profile.
func createUserTx(tx *gorm.DB, user *models.User) error {
	if err := tx.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	profile := models.NewProfile(user.UserID)
	if err := tx.Create(profile).Error; err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	user.Profile = profile
	return nil
}

func (s *AccountService) emailTaken(ctx context.Context, db *gorm.DB, email string, exceptUserID int) (bool, error) {
	var count int64
	q := db.WithContext(ctx).Model(&models.User{}).Where("email = ? OR username = ?", email, email)
	if exceptUserID != 0 {
		q = q.Where("user_id <> ?", exceptUserID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Authenticate checks a username (the email address) and password.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = utils.NormalizeEmail(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &user, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (s *AccountService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

// ChangePassword verifies oldPassword before storing newPassword.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	fields := utils.FieldErrors{}
	if oldPassword == "" {
		fields.Add("old_password", "This field is required.")
	}
	if newPassword == "" {
		fields.Add("new_password", "This field is required.")
	} else if ok, msg := utils.ValidatePassword(newPassword); !ok {
		fields.Add("new_password", msg)
	}
	if err := newValidationError(fields); err != nil {
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, user.Password) {
		return fieldError("old_password", "Wrong password.")
	}
	return s.SetPassword(ctx, user, newPassword)
}

// SetPassword stores newPassword without checking the current one. The
// password strength rules still apply.
func (s *AccountService) SetPassword(ctx context.Context, user *models.User, newPassword string) error {
	if ok, msg := utils.ValidatePassword(newPassword); !ok {
		return fieldError("password", msg)
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	user.Password = hashed
	return nil
}

func (s *AccountService) ChangeName(ctx context.Context, user *models.User, patch NamePatch) (*models.User, error) {
	fields := utils.FieldErrors{}
	updates := map[string]interface{}{}
	if patch.FirstName != nil {
		v := utils.SanitizeInput(*patch.FirstName)
		if msg := nameProblem(v); msg != "" {
			fields.Add("first_name", msg)
		}
		updates["first_name"] = v
	}
	if patch.LastName != nil {
		v := utils.SanitizeInput(*patch.LastName)
		if msg := nameProblem(v); msg != "" {
			fields.Add("last_name", msg)
		}
		updates["last_name"] = v
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update name: %w", err)
	}
	return s.GetUser(ctx, user.UserID)
}

func nameProblem(v string) string {
	switch {
	case v == "":
		return "This field may not be blank."
	case len([]rune(v)) > 30:
		return "Ensure this field has no more than 30 characters."
	}
	return ""
}

// ChangeEmail moves the account to a new address; the username follows.
func (s *AccountService) ChangeEmail(ctx context.Context, user *models.User, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return fieldError("email", "This field is required.")
	}
	if !utils.ValidateEmail(email) {
		return fieldError("email", "Enter a valid email address.")
	}
	taken, err := s.emailTaken(ctx, s.db, email, user.UserID)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("email", "This field must be unique.")
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"email":    email,
		"username": email,
	}).Error; err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	user.Email = email
	user.Username = email
	return nil
}

// CanSearchUsers allows staff and editors of a paper that is under review.
func (s *AccountService) CanSearchUsers(ctx context.Context, actor *models.User) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.IsStaff {
		return true, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Paper{}).
		Where("editor_id = ? AND status = ?", actor.UserID, models.StatusUnderReview).
		Count(&count).Error
	return count > 0, err
}

// SearchUsers lists users whose email contains fragment.
func (s *AccountService) SearchUsers(ctx context.Context, fragment string) ([]models.User, error) {
	fragment = utils.SanitizeInput(fragment)
	if fragment == "" {
		return nil, fieldError("email", "This field is required.")
	}
	escaped := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(fragment)

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("email LIKE ? ESCAPE '!'", "%"+escaped+"%").
		Order("user_id").
		Limit(50).
		Find(&users).Error
	return users, err
}

// GetProfile returns the profile of user userID if actor may read it.
func (s *AccountService) GetProfile(ctx context.Context, actor *models.User, userID int) (*models.Profile, error) {
	return s.findProfile(ctx, actor, userID)
}

// OwnProfile returns actor's own profile.
func (s *AccountService) OwnProfile(ctx context.Context, actor *models.User) (*models.Profile, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	return s.findProfile(ctx, actor, actor.UserID)
}

func (s *AccountService) findProfile(ctx context.Context, actor *models.User, userID int) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if !OwnsProfile(actor, profile.UserID) {
		return nil, ErrForbidden
	}
	return &profile, nil
}

// UpdateProfile applies patch to the profile of user userID. Fields left nil
// are untouched.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *models.User, userID int, patch ProfilePatch) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	fields := utils.FieldErrors{}
	updates := map[string]interface{}{}
	if patch.Title != nil {
		title, err := models.ParseTitle(utils.SanitizeInput(*patch.Title))
		if err != nil {
			fields.Add("title", err.Error())
		}
		updates["title"] = title
	}
	if patch.Country != nil {
		country, err := models.ParseCountry(utils.SanitizeInput(*patch.Country))
		if err != nil {
			fields.Add("country", err.Error())
		}
		updates["country"] = country
	}
	if patch.Phone != nil {
		v := utils.SanitizeInput(*patch.Phone)
		if len([]rune(v)) > 64 {
			fields.Add("phone", "Ensure this field has no more than 64 characters.")
		}
		updates["phone"] = v
	}
	if patch.Affiliation != nil {
		v := utils.SanitizeInput(*patch.Affiliation)
		if len([]rune(v)) > 64 {
			fields.Add("affiliation", "Ensure this field has no more than 64 characters.")
		}
		updates["affiliation"] = v
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return profile, nil
	}

	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, actor, userID)
}

// ensureUserTx returns the user registered under email, creating an active
// passwordless account with a default profile when there is none.
func ensureUserTx(tx *gorm.DB, email string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username: email,
		Email:    email,
		IsActive: true,
	}
	if err := createUserTx(tx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
