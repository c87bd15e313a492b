package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

func TestNew_NormalizesEmail(t *testing.T) {
	u, err := New("u1", "alice", "Alice@Example.com", "hash", Profile{})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, StatusActive, u.Status)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.Equal(t, 0, u.Version)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("u1", "", "a@b.com", "hash", Profile{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = New("u1", "alice", "not-an-email", "hash", Profile{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestLockout(t *testing.T) {
	u, err := New("u1", "alice", "a@b.com", "hash", Profile{})
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		u.RecordFailedLogin(3, 15*time.Minute, now)
	}
	assert.False(t, u.Locked(now), "below threshold must not lock")

	u.RecordFailedLogin(3, 15*time.Minute, now)
	assert.True(t, u.Locked(now))
	assert.False(t, u.Locked(now.Add(16*time.Minute)), "lock must expire")

	u.ResetFailedLogins(now)
	assert.Equal(t, 0, u.FailedLoginAttempts)
	assert.Nil(t, u.LockedUntil)
	assert.False(t, u.Locked(now))
}
