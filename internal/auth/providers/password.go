package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/db"
)

type PasswordProvider struct {
	Q db.Directory
}

func NewPasswordProvider(q db.Directory) *PasswordProvider {
	return &PasswordProvider{Q: q}
}

func (p *PasswordProvider) Name() string {
	return auth.MethodPassword
}

func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (auth.Principal, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	user, err := p.Q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Principal{}, auth.ErrInvalidCredentials
		}
		return auth.Principal{}, err
	}
	if !user.IsActive {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return auth.Principal{}, err
	}
	if !match {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}

	return PrincipalFromUser(user, auth.MethodPassword), nil
}

// Registration is a self-service signup request.
type Registration struct {
	Email    string
	Name     string
	Phone    string
	Password string
}

// Register creates a patient account. Signup never grants doctor or admin.
func (p *PasswordProvider) Register(ctx context.Context, reg Registration) (auth.Principal, error) {
	email := auth.NormalizeEmail(reg.Email)
	if email == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(reg.Password); err != nil {
		return auth.Principal{}, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return auth.Principal{}, err
	}

	user, err := p.Q.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		Name:         strings.TrimSpace(reg.Name),
		Phone:        strings.TrimSpace(reg.Phone),
		PasswordHash: hash,
		Roles:        []string{string(auth.RolePatient)},
		IsActive:     true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return auth.Principal{}, auth.ErrEmailTaken
		}
		return auth.Principal{}, err
	}

	return PrincipalFromUser(user, auth.MethodSignup), nil
}

// PrincipalFromUser maps a directory row to a principal, normalizing legacy
// role spellings and dropping unknown ones.
func PrincipalFromUser(user db.User, method string) auth.Principal {
	return auth.Principal{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Phone:  user.Phone,
		Roles:  auth.ParseRoles(user.Roles),
		Method: method,
	}
}
