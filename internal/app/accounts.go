package app

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"skywardportal/pkg/auth"
	"skywardportal/pkg/domain"
)

// SignUp registers a new account and its profile row. The very first account
// on a fresh install becomes the admin; everyone after that is a regular user.
func (a *App) SignUp(email, password, fullName string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := auth.ValidateEmail(email); err != nil {
		return domain.User{}, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName != "" {
		if err := auth.ValidateFullName(fullName); err != nil {
			return domain.User{}, err
		}
	}

	taken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, ErrEmailTaken
	}

	existing, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, fmt.Errorf("count users: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	profile := domain.Profile{
		UserID:    user.ID,
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
	}
	if err := a.store.SaveProfile(profile); err != nil {
		return domain.User{}, fmt.Errorf("save profile: %w", err)
	}
	if existing == 0 {
		if err := a.store.AddRole(user.ID, domain.RoleAdmin); err != nil {
			return domain.User{}, fmt.Errorf("grant admin role: %w", err)
		}
	}
	return user, nil
}

// Login verifies credentials and returns the account.
func (a *App) Login(email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Account is the /users/me payload: the user plus profile and role facts.
type Account struct {
	User    domain.User    `json:"user"`
	Profile domain.Profile `json:"profile"`
	IsAdmin bool           `json:"isAdmin"`
}

// GetAccount loads the signed-in user's own view.
func (a *App) GetAccount(userID string) (Account, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return Account{}, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return Account{}, ErrInvalidCredentials
	}
	profile, _, err := a.store.GetProfile(userID)
	if err != nil {
		return Account{}, fmt.Errorf("lookup profile: %w", err)
	}
	isAdmin, err := a.store.HasRole(userID, domain.RoleAdmin)
	if err != nil {
		return Account{}, fmt.Errorf("lookup role: %w", err)
	}
	return Account{User: user, Profile: profile, IsAdmin: isAdmin}, nil
}

// IsAdmin reports whether the user holds the admin role.
func (a *App) IsAdmin(userID string) (bool, error) {
	return a.store.HasRole(userID, domain.RoleAdmin)
}
