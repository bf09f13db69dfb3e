package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string   `json:"name" validate:"required,min=2"`
	Email string   `json:"email" validate:"required,email"`
	Level string   `json:"level,omitempty" validate:"omitempty,oneof=beginner advanced"`
	Tags  []string `json:"tags" validate:"max=2"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(signup{Name: "Ana", Email: "ana@example.com"}))

	err := Struct(signup{Name: "A", Email: "nope", Level: "expert", Tags: []string{"a", "b", "c"}})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, ValidationErrors{
		{Field: "name", Message: "name must be at least 2 characters"},
		{Field: "email", Message: "email must be a valid email"},
		{Field: "level", Message: "level must be one of: beginner advanced"},
		{Field: "tags", Message: "tags must have at most 2 items"},
	}, verrs)
	assert.Contains(t, err.Error(), "name must be at least 2 characters; email")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "héllo", SanitizeString("  héllo world ", 5))
	assert.Equal(t, "ana@example.com", SanitizeEmail(" ANA@Example.com "))
}
