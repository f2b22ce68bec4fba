package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.NoError(t, ValidateEmail("a.b+tag@sub.example.co"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("spaces in@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("123456"))

	assert.Error(t, ValidatePassword("12345"))
	assert.Error(t, ValidatePassword(""))
	// bcrypt rejects inputs above 72 bytes
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidatePassword(string(long)))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("bob"))
	assert.NoError(t, ValidateUsername("weather_watcher42"))

	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("   "))
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(0, 0))
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.NoError(t, ValidateCoordinates(90, -180))

	assert.Error(t, ValidateCoordinates(90.1, 0))
	assert.Error(t, ValidateCoordinates(-91, 0))
	assert.Error(t, ValidateCoordinates(0, 180.5))
	assert.Error(t, ValidateCoordinates(0, -181))
}
