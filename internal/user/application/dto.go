package application

import (
	"time"

	"github.com/felixzhu97/orderflow/internal/user/domain"
)

// UserDTO is the public projection of a user. The password hash is
// deliberately excluded; it never leaves the service layer.
type UserDTO struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	FirstName           string     `json:"first_name,omitempty"`
	LastName            string     `json:"last_name,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	Status              string     `json:"status"`
	Role                string     `json:"role"`
	EmailVerified       bool       `json:"email_verified"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Version             int        `json:"version"`
}

func ToUserDTO(u domain.User) UserDTO {
	return UserDTO{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		FirstName:           u.Profile.FirstName,
		LastName:            u.Profile.LastName,
		Phone:               u.Profile.Phone,
		Status:              string(u.Status),
		Role:                string(u.Role),
		EmailVerified:       u.EmailVerified,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		Version:             u.Version,
	}
}

// UserFromDTO rebuilds the domain user from its public shape. The password
// hash cannot round-trip through the DTO; callers supply it separately when
// they hold it.
func UserFromDTO(d UserDTO, passwordHash string) domain.User {
	return domain.Reconstruct(
		d.ID, d.Username, d.Email, passwordHash,
		domain.Profile{FirstName: d.FirstName, LastName: d.LastName, Phone: d.Phone},
		domain.Status(d.Status), domain.Role(d.Role),
		d.EmailVerified, d.FailedLoginAttempts, d.LockedUntil,
		d.CreatedAt, d.UpdatedAt, d.Version,
	)
}
