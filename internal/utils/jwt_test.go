package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken("s3cret", 12, "+9647700000012", "seller", "", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("s3cret", token)
	require.NoError(t, err)
	assert.EqualValues(t, 12, claims.UserID)
	assert.Equal(t, "+9647700000012", claims.Phone)
	assert.Equal(t, "seller", claims.UserType)
}

func TestValidateToken_Rejects(t *testing.T) {
	token, err := GenerateToken("s3cret", 1, "+1", "", "", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("s3cret", 1, "+1", "", "", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("s3cret", expired)
	assert.Error(t, err)

	_, err = ValidateToken("", token)
	assert.Error(t, err)
}
