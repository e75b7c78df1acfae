package services

import (
	"errors"

	"acrevista-api/models"
	"acrevista-api/utils"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrAlreadyReviewed    = errors.New("you have already submitted a review for this paper")
	ErrAlreadyInvited     = errors.New("user has already been invited")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInactiveUser       = errors.New("user account is disabled")
	ErrTokenInvalid       = errors.New("invalid login token")
	ErrTokenExpired       = errors.New("token is expired")
	ErrTokenTooLarge      = errors.New("the maximum size for a security token is 64 bytes")
	ErrInvitationClosed   = errors.New("invitation is no longer pending")
	ErrDeliveryFailed     = errors.New("failed to send notification email")
)

// ValidationError carries field-level messages for a rejected input.
type ValidationError struct {
	Fields utils.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

func newValidationError(fields utils.FieldErrors) error {
	if fields.Empty() {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func fieldError(field, message string) error {
	fields := utils.FieldErrors{}
	fields.Add(field, message)
	return &ValidationError{Fields: fields}
}

// enumFieldError turns an enum parse failure into a field error that lists the valid set.
func enumFieldError(err error) error {
	var enumErr *models.EnumError
	if errors.As(err, &enumErr) {
		return fieldError(enumErr.Field, enumErr.Error())
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
