package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	p := NewParser("secret")
	id := uuid.New()

	token, err := p.Issue(id, time.Now().Add(time.Hour))
	require.NoError(t, err)

	got, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	token, err := NewParser("secret").Issue(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewParser("other").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	p := NewParser("secret")
	token, err := p.Issue(uuid.New(), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = p.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewParser("secret").Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
