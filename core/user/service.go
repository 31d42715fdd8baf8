package user

import (
	"context"
	"errors"
	"time"

	"github.com/smartsubmit/smartsubmit/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleNotHeld        = errors.New("user does not hold the required role")
)

type (
	Repository interface {
		// CreateUser persists usr and its role memberships; fails with
		// ErrEmailExists when the email is already taken.
		CreateUser(ctx context.Context, usr User, roleIDs ...int) (User, error)
		// GetUserByID returns the user with roles eagerly loaded.
		GetUserByID(ctx context.Context, id int) (User, error)
		// GetUserByEmail returns the user with roles eagerly loaded.
		GetUserByEmail(ctx context.Context, email string) (User, error)
		EmailExists(ctx context.Context, email string) (bool, error)
		// UserHasRole re-queries role membership; tokens carry no role claims.
		UserHasRole(ctx context.Context, userID, roleID int) (bool, error)
		AdminExists(ctx context.Context) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate verifies email/password. A user miss and a password mismatch
// return the identical ErrInvalidCredentials so callers cannot enumerate
// accounts. When roleFilter is non-empty the user must hold a role whose
// label matches it case-insensitively.
func (svc *Service) Authenticate(ctx context.Context, email, password, roleFilter string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if roleFilter != "" && !usr.HasRoleLabel(roleFilter) {
		return User{}, ErrRoleNotHeld
	}
	return usr, nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr, nu.RoleID)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// HasRole re-checks role membership against storage; used to gate
// admin-only and teacher-only operations per request.
func (svc *Service) HasRole(ctx context.Context, userID, roleID int) (bool, error) {
	return svc.repo.UserHasRole(ctx, userID, roleID)
}

func (svc *Service) AdminExists(ctx context.Context) (bool, error) {
	return svc.repo.AdminExists(ctx)
}
