package application_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/internal/storage/memory"
	"github.com/felixzhu97/orderflow/internal/user/application"
	"github.com/felixzhu97/orderflow/internal/user/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

// fakeHasher keeps tests fast; the real implementation is bcrypt.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (fakeHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return apperr.New(apperr.CodeUnauthorized, "password mismatch")
	}
	return nil
}

type emailRecorder struct {
	emails []notification.Email
}

func (r *emailRecorder) SendEmail(_ context.Context, msg notification.Email) error {
	r.emails = append(r.emails, msg)
	return nil
}

func (r *emailRecorder) SendSMS(context.Context, notification.SMS) error   { return nil }
func (r *emailRecorder) SendPush(context.Context, notification.Push) error { return nil }

const (
	lockThreshold = 3
	lockDuration  = 15 * time.Minute
)

func newService(t *testing.T) (*application.Service, *memory.UserRepository, *emailRecorder) {
	t.Helper()
	users := memory.NewUserRepository()
	notifier := &emailRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, uow.NewMemoryManager(users), users, fakeHasher{},
		notifier, lockThreshold, lockDuration, time.Second)
	return svc, users, notifier
}

func registerInput() application.RegisterInput {
	return application.RegisterInput{
		Username:  "ada",
		Email:     "Ada@Example.COM",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestRegister(t *testing.T) {
	svc, users, notifier := newService(t)

	res := svc.Register(context.Background(), registerInput())
	require.True(t, res.Success, "unexpected failure: %s %s", res.ErrorCode, res.ErrorMessage)
	assert.Equal(t, "ada", res.Data.Username)
	assert.Equal(t, "ada@example.com", res.Data.Email, "email must be normalised to lower case")
	assert.Equal(t, string(domain.StatusActive), res.Data.Status)
	assert.Equal(t, string(domain.RoleCustomer), res.Data.Role)
	assert.False(t, res.Data.EmailVerified)

	stored, err := users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:correct-horse", stored.PasswordHash)

	require.Len(t, notifier.emails, 1)
	assert.Equal(t, "Welcome", notifier.emails[0].Subject)
}

func TestRegisterShortPassword(t *testing.T) {
	svc, _, _ := newService(t)

	in := registerInput()
	in.Password = "short"
	res := svc.Register(context.Background(), in)
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeValidation), res.ErrorCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	require.True(t, svc.Register(ctx, registerInput()).Success)

	in := registerInput()
	in.Username = "someone-else"
	res := svc.Register(ctx, in)
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeDuplicateEmail), res.ErrorCode)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	require.True(t, svc.Register(ctx, registerInput()).Success)

	in := registerInput()
	in.Email = "other@example.com"
	res := svc.Register(ctx, in)
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeDuplicateUsername), res.ErrorCode)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	require.True(t, svc.Register(ctx, registerInput()).Success)

	res := svc.Authenticate(ctx, application.AuthenticateInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.True(t, res.Success)
	assert.Equal(t, "ada", res.Data.Username)
}

func TestAuthenticateUnknownEmailReportsUnauthorized(t *testing.T) {
	svc, _, _ := newService(t)

	res := svc.Authenticate(context.Background(), application.AuthenticateInput{
		Email:    "ghost@example.com",
		Password: "whatever-long",
	})
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeUnauthorized), res.ErrorCode,
		"a missing account must be indistinguishable from a wrong password")
}

func TestAuthenticateLockout(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	require.True(t, svc.Register(ctx, registerInput()).Success)

	bad := application.AuthenticateInput{Email: "ada@example.com", Password: "wrong-password"}
	for i := 0; i < lockThreshold; i++ {
		res := svc.Authenticate(ctx, bad)
		require.False(t, res.Success)
		assert.Equal(t, string(apperr.CodeUnauthorized), res.ErrorCode)
	}

	stored, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, lockThreshold, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockedUntil)

	// Even the correct password is refused while the lock holds.
	res := svc.Authenticate(ctx, application.AuthenticateInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.False(t, res.Success)
	assert.Equal(t, string(apperr.CodeAccountLocked), res.ErrorCode)
}

func TestAuthenticateSuccessResetsCounter(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()
	require.True(t, svc.Register(ctx, registerInput()).Success)

	bad := application.AuthenticateInput{Email: "ada@example.com", Password: "wrong-password"}
	for i := 0; i < lockThreshold-1; i++ {
		require.False(t, svc.Authenticate(ctx, bad).Success)
	}

	res := svc.Authenticate(ctx, application.AuthenticateInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	require.True(t, res.Success)

	stored, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestVerifyEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	created := svc.Register(ctx, registerInput())
	require.True(t, created.Success)

	res := svc.VerifyEmail(ctx, created.Data.ID)
	require.True(t, res.Success)
	assert.True(t, res.Data.EmailVerified)

	// Verifying twice is a no-op, not an error.
	again := svc.VerifyEmail(ctx, created.Data.ID)
	require.True(t, again.Success)
	assert.Equal(t, res.Data.Version, again.Data.Version)
}

func TestUserDTOExcludesPasswordHash(t *testing.T) {
	svc, _, _ := newService(t)
	created := svc.Register(context.Background(), registerInput())
	require.True(t, created.Success)

	payload, err := json.Marshal(created.Data)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(payload), "hashed:"),
		"serialized user must not carry the password hash")
	assert.False(t, strings.Contains(string(payload), "password"))
}

func TestUserDTORoundTrip(t *testing.T) {
	user, err := domain.New("u-1", "ada", "ada@example.com", "hashed:pw", domain.Profile{FirstName: "Ada"})
	require.NoError(t, err)
	user.Version = 3

	dto := application.ToUserDTO(user)
	back := application.UserFromDTO(dto, user.PasswordHash)
	assert.Equal(t, user, back)
}
