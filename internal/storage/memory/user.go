package memory

import (
	"context"
	"strings"

	"github.com/felixzhu97/orderflow/internal/user/domain"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type UserRepository struct {
	*Store[domain.User]
}

func NewUserRepository() *UserRepository {
	return &UserRepository{Store: NewStore("user", Config[domain.User]{
		ID:      func(u domain.User) string { return u.ID },
		Version: func(u domain.User) int { return u.Version },
		SetVersion: func(u domain.User, v int) domain.User {
			u.Version = v
			return u
		},
		Clone: func(u domain.User) domain.User {
			if u.LockedUntil != nil {
				until := *u.LockedUntil
				u.LockedUntil = &until
			}
			return u
		},
	})}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.Get(id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(email, func(u domain.User) string { return u.Email })
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(username, func(u domain.User) string { return u.Username })
}

func (r *UserRepository) findOne(want string, field func(domain.User) string) (domain.User, error) {
	want = strings.ToLower(want)
	matches := r.Filter(func(u domain.User) bool { return strings.ToLower(field(u)) == want })
	if len(matches) == 0 {
		return domain.User{}, apperr.Newf(apperr.CodeNotFound, "user %s not found", want)
	}
	return matches[0], nil
}

func (r *UserRepository) Save(ctx context.Context, u domain.User) (domain.User, error) {
	return r.Store.Save(u)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.Store.Delete(id)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
