package domain

import (
	"strings"
	"time"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

var (
	ErrDuplicateEmail    = apperr.New(apperr.CodeDuplicateEmail, "email already registered")
	ErrDuplicateUsername = apperr.New(apperr.CodeDuplicateUsername, "username already taken")
	ErrAccountLocked     = apperr.New(apperr.CodeAccountLocked, "account temporarily locked")
	ErrBadCredentials    = apperr.New(apperr.CodeUnauthorized, "invalid credentials")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type Profile struct {
	FirstName string
	LastName  string
	Phone     string
}

// User is the account aggregate. Username and Email are unique across all
// users; the repository enforces this at the store level and the service
// pre-checks it for a friendlier error.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	Profile             Profile
	Status              Status
	Role                Role
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Version             int
}

func New(id, username, email, passwordHash string, profile Profile) (User, error) {
	if username == "" {
		return User{}, apperr.New(apperr.CodeValidation, "username is required")
	}
	if !strings.Contains(email, "@") {
		return User{}, apperr.New(apperr.CodeValidation, "malformed email address")
	}
	if passwordHash == "" {
		return User{}, apperr.New(apperr.CodeValidation, "password hash is required")
	}
	now := time.Now().UTC()
	return User{
		ID:           id,
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Profile:      profile,
		Status:       StatusActive,
		Role:         RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a user from its persisted fields; no field is ever
// set outside this package's control.
func Reconstruct(
	id, username, email, passwordHash string,
	profile Profile,
	status Status,
	role Role,
	emailVerified bool,
	failedLoginAttempts int,
	lockedUntil *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) User {
	return User{
		ID:                  id,
		Username:            username,
		Email:               email,
		PasswordHash:        passwordHash,
		Profile:             profile,
		Status:              status,
		Role:                role,
		EmailVerified:       emailVerified,
		FailedLoginAttempts: failedLoginAttempts,
		LockedUntil:         lockedUntil,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
		Version:             version,
	}
}

func (u User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RecordFailedLogin increments the failure counter and, once the threshold
// is crossed, locks the account until now+lockFor.
func (u *User) RecordFailedLogin(threshold int, lockFor time.Duration, now time.Time) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		until := now.Add(lockFor)
		u.LockedUntil = &until
	}
	u.UpdatedAt = now
}

// ResetFailedLogins clears the counter and any lock after a successful
// authentication.
func (u *User) ResetFailedLogins(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = now
}

func (u *User) VerifyEmail(now time.Time) {
	u.EmailVerified = true
	u.UpdatedAt = now
}
