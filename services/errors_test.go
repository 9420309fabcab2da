package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create: %w", newStoreError("posts.Create", "abc", cause))

	assert.True(t, IsStoreError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "posts.Create (abc)")
	assert.False(t, IsNotFound(err))

	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NewNotFoundError("post", "1"))))
	assert.True(t, IsValidationError(NewValidationError("page", "bad")))
	assert.True(t, IsForbidden(fmt.Errorf("x: %w", ErrForbidden)))
}
