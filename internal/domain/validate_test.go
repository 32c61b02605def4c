package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "neo@x.com", NormalizeEmail("  Neo@X.com "))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("neo"))
	assert.NoError(t, ValidateUsername("abcdefghijklmnopqrst"))
	assert.Error(t, ValidateUsername("ne"))
	assert.Error(t, ValidateUsername("abcdefghijklmnopqrstu"))
	assert.Error(t, ValidateUsername("neo anderson"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("neo@x.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("neo.x.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("12345"))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("avatar", "https://example.com/a.png"))
	assert.Error(t, ValidateURL("avatar", "ftp://example.com/a.png"))
	assert.Error(t, ValidateURL("avatar", "example"))
}
