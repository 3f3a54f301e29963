// Package db holds the portal's user directory queries.
package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medportal/medportal/internal/auth"
)

// ErrLastAdmin is returned when a role change would leave no active admin.
var ErrLastAdmin = errors.New("db: at least one active admin is required")

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Directory is the subset of user queries the web layer depends on.
// Lookups that match nothing return pgx.ErrNoRows; duplicate emails surface
// as a unique violation.
type Directory interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountAdmins(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error)
	SetUserRoles(ctx context.Context, arg SetUserRolesParams) (User, error)
	SetUserRolesKeepingAdmin(ctx context.Context, arg SetUserRolesParams) (User, error)
	UpdateUserLoginMeta(ctx context.Context, arg UpdateUserLoginMetaParams) error
}

var _ Directory = (*Queries)(nil)

// NormalizeRoles maps stored or submitted role spellings onto the canonical
// set, dropping unknown values. Every role write goes through it.
func NormalizeRoles(raw []string) []string {
	return auth.RoleStrings(auth.ParseRoles(raw))
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
