package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWTToken(t *testing.T) {
	id := uuid.New()
	token, issued, err := GenerateJWTToken(id, "ada@example.com", "testsecret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWTToken(token, "testsecret")
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)

	_, err = ParseJWTToken(token, "othersecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseJWTTokenExpired(t *testing.T) {
	token, _, err := GenerateJWTToken(uuid.New(), "ada@example.com", "testsecret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWTToken(token, "testsecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
