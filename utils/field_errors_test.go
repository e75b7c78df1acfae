package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `form:"name" validate:"required,max=5"`
	Age   int    `json:"age" validate:"gt=0"`
	Note  string `json:"-" validate:"max=1"`
}

func TestValidateStructUsesRequestNames(t *testing.T) {
	fields := ValidateStruct(signup{Email: "nope", Name: "too long", Note: "xx"})

	assert.Equal(t, []string{"Enter a valid email address."}, fields["email"])
	assert.Equal(t, []string{"Ensure this field has no more than 5 characters."}, fields["name"])
	assert.Equal(t, []string{"A valid integer is required."}, fields["age"])
	assert.Len(t, fields, 4)

	assert.True(t, ValidateStruct(signup{Email: "a@example.com", Name: "Ada", Age: 3}).Empty())
}

func TestFieldErrors(t *testing.T) {
	f := FieldErrors{}
	f.Add("b", "second")
	f.Add("a", "first")
	f.Merge(FieldErrors{"a": {"again"}})

	assert.True(t, f.Has("a"))
	assert.False(t, f.Has("c"))
	assert.Equal(t, "a: first again; b: second", f.Error())
}

func TestPasswordHelpers(t *testing.T) {
	ok, msg := ValidatePassword("short")
	assert.False(t, ok)
	assert.Equal(t, "Ensure this field has at least 8 characters.", msg)

	ok, _ = ValidatePassword("long enough")
	assert.True(t, ok)

	hash, err := HashPassword("long enough")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("long enough", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Ada@example.com", NormalizeEmail("  Ada@EXAMPLE.com "))
	assert.True(t, ValidateEmail("ada@example.com"))
	assert.False(t, ValidateEmail("ada@"))
	assert.Equal(t, "abc", SanitizeInput(" a\x00bc "))
}
