package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	_, err := ParseDate("2024-01-31")
	assert.NoError(t, err)

	for _, bad := range []string{"", "01/31/2024", "2024-13-01", "2024-1-1"} {
		_, err := ParseDate(bad)
		require.Error(t, err, bad)
		assert.Equal(t, KindValidation, KindOf(err))
	}
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange("2024-01-01", "2024-01-31"))
	// Single-day ranges are allowed
	assert.NoError(t, ValidateRange("2024-01-01", "2024-01-01"))

	err := ValidateRange("2024-02-01", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}
