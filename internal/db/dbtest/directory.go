// Package dbtest provides an in-memory db.Directory for tests.
package dbtest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/db"
)

// Directory mimics the Postgres queries closely enough for handler tests:
// misses return pgx.ErrNoRows and duplicate emails return a 23505 PgError.
type Directory struct {
	mu    sync.Mutex
	users map[string]db.User
	now   func() time.Time
}

var _ db.Directory = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		users: make(map[string]db.User),
		now:   time.Now,
	}
}

// Add inserts u, assigning an ID when it has none, and returns the stored row.
func (d *Directory) Add(u db.User) db.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
		u.UpdatedAt = u.CreatedAt
	}
	u.Roles = slices.Clone(u.Roles)
	d.users[u.ID] = u
	return u
}

func (d *Directory) GetUser(_ context.Context, id string) (db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return cloneUser(u), nil
}

func (d *Directory) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (d *Directory) ListUsers(_ context.Context, arg db.ListUsersParams) ([]db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]db.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, cloneUser(u))
	}
	slices.SortFunc(out, func(a, b db.User) int {
		return strings.Compare(a.Email, b.Email)
	})

	offset := min(max(int(arg.Offset), 0), len(out))
	end := min(offset+max(int(arg.Limit), 0), len(out))
	return out[offset:end], nil
}

func (d *Directory) CountUsers(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.users)), nil
}

func (d *Directory) CountAdmins(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.activeAdmins())), nil
}

// activeAdmins matches any stored admin spelling, as the SQL does. Callers
// hold d.mu.
func (d *Directory) activeAdmins() []string {
	var ids []string
	for id, u := range d.users {
		if u.IsActive && slices.ContainsFunc(u.Roles, func(r string) bool { return auth.ParseRole(r) == auth.RoleAdmin }) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (d *Directory) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	d.mu.Lock()
	for _, u := range d.users {
		if u.Email == arg.Email {
			d.mu.Unlock()
			return db.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	d.mu.Unlock()

	return d.Add(db.User{
		Email:        arg.Email,
		Name:         arg.Name,
		Phone:        arg.Phone,
		PasswordHash: arg.PasswordHash,
		Roles:        db.NormalizeRoles(arg.Roles),
		IsActive:     arg.IsActive,
	}), nil
}

func (d *Directory) UpdateUserProfile(_ context.Context, arg db.UpdateUserProfileParams) (db.User, error) {
	return d.update(arg.ID, func(u *db.User) {
		u.Name = arg.Name
		u.Phone = arg.Phone
	})
}

func (d *Directory) SetUserRoles(_ context.Context, arg db.SetUserRolesParams) (db.User, error) {
	return d.update(arg.ID, func(u *db.User) {
		u.Roles = db.NormalizeRoles(arg.Roles)
	})
}

func (d *Directory) SetUserRolesKeepingAdmin(_ context.Context, arg db.SetUserRolesParams) (db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[arg.ID]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	roles := db.NormalizeRoles(arg.Roles)
	admins := d.activeAdmins()
	if slices.Contains(admins, arg.ID) && len(admins) <= 1 && !slices.Contains(roles, string(auth.RoleAdmin)) {
		return db.User{}, db.ErrLastAdmin
	}
	u.Roles = roles
	u.UpdatedAt = d.now()
	d.users[arg.ID] = u
	return cloneUser(u), nil
}

func (d *Directory) UpdateUserLoginMeta(_ context.Context, arg db.UpdateUserLoginMetaParams) error {
	_, err := d.update(arg.ID, func(u *db.User) {
		at := arg.LastLoginAt
		u.LastLoginAt = &at
		u.LastLoginIP = arg.LastLoginIP
	})
	return err
}

// SetActive toggles the active flag, as an admin deactivation would.
func (d *Directory) SetActive(id string, active bool) {
	_, _ = d.update(id, func(u *db.User) {
		u.IsActive = active
	})
}

func (d *Directory) update(id string, fn func(*db.User)) (db.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	fn(&u)
	u.UpdatedAt = d.now()
	d.users[id] = u
	return cloneUser(u), nil
}

func cloneUser(u db.User) db.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
