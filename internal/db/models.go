package db

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
	LastLoginIP  string
}

type CreateUserParams struct {
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Roles        []string
	IsActive     bool
}

type UpdateUserProfileParams struct {
	ID    string
	Name  string
	Phone string
}

type ListUsersParams struct {
	Limit  int32
	Offset int32
}

type SetUserRolesParams struct {
	ID    string
	Roles []string
}

type UpdateUserLoginMetaParams struct {
	ID          string
	LastLoginAt time.Time
	LastLoginIP string
}
