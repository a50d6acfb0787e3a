package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	assert.Equal(t, Code(""), GetCode(nil))
	assert.Equal(t, CodeInternal, GetCode(errors.New("boom")))
	assert.Equal(t, CodeNotFound, GetCode(New(CodeNotFound, "employee not found")))

	wrapped := fmt.Errorf("update: %w", New(CodeNotFound, "employee not found"))
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
}

func TestValidationJoinsMessagesInFieldOrder(t *testing.T) {
	err := Validation(map[string]string{
		"position": "The position field is required.",
		"age":      "The age must be at least 1.",
	})

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "The age must be at least 1., The position field is required.", err.Error())
	assert.Equal(t, "The age must be at least 1.", FieldErrors(err)["age"])
	assert.Nil(t, FieldErrors(errors.New("plain")))
}
