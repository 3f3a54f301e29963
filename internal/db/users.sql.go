package db

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/medportal/medportal/internal/auth"
)

const userColumns = `id::text, email, name, phone, password_hash, roles, is_active, created_at, updated_at, last_login_at, last_login_ip`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Phone,
		&u.PasswordHash,
		&u.Roles,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
		&u.LastLoginIP,
	)
	return u, err
}

const getUser = `SELECT ` + userColumns + ` FROM portal_users WHERE id = $1::uuid`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM portal_users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const listUsers = `SELECT ` + userColumns + ` FROM portal_users
ORDER BY email
LIMIT $1 OFFSET $2`

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUsers = `SELECT count(*) FROM portal_users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsers).Scan(&n)
	return n, err
}

// adminRoles holds every stored spelling of the admin role. Rows written
// before roles were normalized may still carry a legacy alias.
var adminRoles = auth.Aliases(auth.RoleAdmin)

const isAdminRow = `EXISTS (
	SELECT 1 FROM unnest(roles) AS r
	WHERE replace(lower(btrim(r)), '-', '_') = ANY($1::text[])
)`

const countAdmins = `SELECT count(*) FROM portal_users WHERE is_active AND ` + isAdminRow

func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAdmins, adminRoles).Scan(&n)
	return n, err
}

const listActiveAdminsForUpdate = `SELECT id::text FROM portal_users
WHERE is_active AND ` + isAdminRow + `
ORDER BY id
FOR UPDATE`

func (q *Queries) listActiveAdminsForUpdate(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listActiveAdminsForUpdate, adminRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const createUser = `INSERT INTO portal_users (email, name, phone, password_hash, roles, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.Name,
		arg.Phone,
		arg.PasswordHash,
		NormalizeRoles(arg.Roles),
		arg.IsActive,
	))
}

const updateUserProfile = `UPDATE portal_users
SET name = $2, phone = $3, updated_at = now()
WHERE id = $1::uuid
RETURNING ` + userColumns

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserProfile, arg.ID, arg.Name, arg.Phone))
}

const setUserRoles = `UPDATE portal_users
SET roles = $2, updated_at = now()
WHERE id = $1::uuid
RETURNING ` + userColumns

func (q *Queries) SetUserRoles(ctx context.Context, arg SetUserRolesParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserRoles, arg.ID, NormalizeRoles(arg.Roles)))
}

// SetUserRolesKeepingAdmin is SetUserRoles that refuses, with ErrLastAdmin,
// to take the admin role from the only active admin. The active admins are
// locked for the duration of the check so concurrent demotions serialize.
func (q *Queries) SetUserRolesKeepingAdmin(ctx context.Context, arg SetUserRolesParams) (User, error) {
	beginner, ok := q.db.(txBeginner)
	if !ok {
		return q.setUserRolesKeepingAdmin(ctx, arg)
	}

	var user User
	err := pgx.BeginFunc(ctx, beginner, func(tx pgx.Tx) error {
		var err error
		user, err = q.WithTx(tx).setUserRolesKeepingAdmin(ctx, arg)
		return err
	})
	return user, err
}

func (q *Queries) setUserRolesKeepingAdmin(ctx context.Context, arg SetUserRolesParams) (User, error) {
	admins, err := q.listActiveAdminsForUpdate(ctx)
	if err != nil {
		return User{}, err
	}
	roles := NormalizeRoles(arg.Roles)
	if slices.Contains(admins, arg.ID) && len(admins) <= 1 && !slices.Contains(roles, string(auth.RoleAdmin)) {
		return User{}, ErrLastAdmin
	}
	return scanUser(q.db.QueryRow(ctx, setUserRoles, arg.ID, roles))
}

const updateUserLoginMeta = `UPDATE portal_users
SET last_login_at = $2, last_login_ip = $3
WHERE id = $1::uuid`

func (q *Queries) UpdateUserLoginMeta(ctx context.Context, arg UpdateUserLoginMetaParams) error {
	_, err := q.db.Exec(ctx, updateUserLoginMeta, arg.ID, arg.LastLoginAt, arg.LastLoginIP)
	return err
}
