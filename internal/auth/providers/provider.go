package providers

import (
	"context"

	"github.com/medportal/medportal/internal/auth"
)

type Provider interface {
	Name() string
	Authenticate(ctx context.Context, email, password string) (auth.Principal, error)
}
