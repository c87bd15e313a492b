package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixzhu97/orderflow/internal/notification"
	"github.com/felixzhu97/orderflow/internal/user/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/result"
	"github.com/felixzhu97/orderflow/pkg/uow"
)

const minPasswordLength = 8

type Service struct {
	log           *slog.Logger
	tx            uow.Manager
	users         UserRepository
	hasher        PasswordHasher
	notifier      notification.Gateway
	lockThreshold int
	lockDuration  time.Duration
	notifyTimeout time.Duration
}

func NewService(
	log *slog.Logger,
	tx uow.Manager,
	users UserRepository,
	hasher PasswordHasher,
	notifier notification.Gateway,
	lockThreshold int,
	lockDuration time.Duration,
	notifyTimeout time.Duration,
) *Service {
	return &Service{
		log:           log,
		tx:            tx,
		users:         users,
		hasher:        hasher,
		notifier:      notifier,
		lockThreshold: lockThreshold,
		lockDuration:  lockDuration,
		notifyTimeout: notifyTimeout,
	}
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Register creates an account: validate, check uniqueness, hash the
// password, persist inside a unit of work, then send a best-effort welcome
// email. Uniqueness violations surface as business failures, not errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) result.Of[UserDTO] {
	if len(in.Password) < minPasswordLength {
		return result.Fail[UserDTO](apperr.CodeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error("password hashing failed", "err", err)
		return result.FromError[UserDTO](err)
	}

	user, err := domain.New(uuid.NewString(), in.Username, in.Email, hash, domain.Profile{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	})
	if err != nil {
		return result.FromError[UserDTO](err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if taken, err := s.users.ExistsByEmail(ctx, user.Email); err != nil {
			return err
		} else if taken {
			return domain.ErrDuplicateEmail
		}
		if taken, err := s.users.ExistsByUsername(ctx, user.Username); err != nil {
			return err
		} else if taken {
			return domain.ErrDuplicateUsername
		}
		user, err = s.users.Save(ctx, user)
		return err
	})
	if err != nil {
		return result.FromError[UserDTO](err)
	}

	s.bestEffort(ctx, "welcome email", func(ctx context.Context) error {
		return s.notifier.SendEmail(ctx, notification.Email{
			To:      user.Email,
			Subject: "Welcome",
			Body:    fmt.Sprintf("Welcome aboard, %s.", user.Username),
		})
	})

	return result.OK(ToUserDTO(user))
}

type AuthenticateInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate verifies credentials. Failures increment the attempt counter
// and, past the threshold, lock the account; a success resets the counter.
// Missing accounts and wrong passwords both report plain UNAUTHORIZED so the
// response does not reveal which one it was.
func (s *Service) Authenticate(ctx context.Context, in AuthenticateInput) result.Of[UserDTO] {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return result.FromError[UserDTO](domain.ErrBadCredentials)
		}
		return result.FromError[UserDTO](err)
	}

	now := time.Now().UTC()
	if user.Locked(now) {
		return result.FromError[UserDTO](domain.ErrAccountLocked)
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		user.RecordFailedLogin(s.lockThreshold, s.lockDuration, now)
		if saveErr := s.saveUser(ctx, &user); saveErr != nil {
			s.log.Error("failed login bookkeeping write failed", "user_id", user.ID, "err", saveErr)
		}
		return result.FromError[UserDTO](domain.ErrBadCredentials)
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		user.ResetFailedLogins(now)
		if err := s.saveUser(ctx, &user); err != nil {
			return result.FromError[UserDTO](err)
		}
	}

	return result.OK(ToUserDTO(user))
}

func (s *Service) VerifyEmail(ctx context.Context, userID string) result.Of[UserDTO] {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return result.FromError[UserDTO](err)
	}
	if user.EmailVerified {
		return result.OK(ToUserDTO(user))
	}

	user.VerifyEmail(time.Now().UTC())
	if err := s.saveUser(ctx, &user); err != nil {
		return result.FromError[UserDTO](err)
	}
	return result.OK(ToUserDTO(user))
}

func (s *Service) GetUser(ctx context.Context, userID string) result.Of[UserDTO] {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return result.FromError[UserDTO](err)
	}
	return result.OK(ToUserDTO(user))
}

func (s *Service) saveUser(ctx context.Context, user *domain.User) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		saved, err := s.users.Save(ctx, *user)
		if err != nil {
			return err
		}
		*user = saved
		return nil
	})
}

func (s *Service) bestEffort(ctx context.Context, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error("best-effort operation failed", "op", op, "err", err)
	}
}
