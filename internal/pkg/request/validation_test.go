package request

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `validate:"required,email"`
	Size  int    `validate:"min=1,max=100"`
	Order string `validate:"omitempty,oneof=asc desc"`
}

func TestFieldErrors(t *testing.T) {
	err := validator.New().Struct(sample{Email: "nope", Size: 500, Order: "sideways"})
	require.Error(t, err)

	fields := FieldErrors(err)
	require.Len(t, fields, 3)
	assert.Equal(t, FieldError{Field: "Email", Message: "must be a valid email address"}, fields[0])
	assert.Equal(t, FieldError{Field: "Size", Message: "must be at most 100"}, fields[1])
	assert.Equal(t, FieldError{Field: "Order", Message: "must be one of [asc desc]"}, fields[2])
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("unexpected EOF")))
	assert.Nil(t, FieldErrors(nil))
}
