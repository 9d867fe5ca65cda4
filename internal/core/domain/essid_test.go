package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateESSID(t *testing.T) {
	assert.NoError(t, ValidateESSID("a"))
	assert.NoError(t, ValidateESSID(string(make([]byte, MaxESSIDLength))))

	err := ValidateESSID("")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValue))

	err = ValidateESSID(string(make([]byte, MaxESSIDLength+1)))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrValue))
}
