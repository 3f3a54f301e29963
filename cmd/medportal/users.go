package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/config"
	"github.com/medportal/medportal/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const usersCommandTimeout = 15 * time.Second

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage portal accounts.",
}

// passwordFlags are shared by every command that sets a password.
type passwordFlags struct {
	password string
	stdin    bool
	generate bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.password, "password", "", "Password for the account (discouraged; prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.stdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&f.generate, "generate-password", false, "Generate a random password and print it")
}

var (
	bootstrapAdminEmail string
	bootstrapAdminPass  passwordFlags

	createUserEmail string
	createUserName  string
	createUserPhone string
	createUserRoles []string
	createUserPass  passwordFlags
)

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the first admin account (idempotent if an admin already exists).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email := auth.NormalizeEmail(bootstrapAdminEmail)
		if email == "" {
			return errors.New("--email is required")
		}

		password, generated, err := resolvePassword(cmd, bootstrapAdminPass)
		if err != nil {
			return err
		}

		return withDirectory(cmd.Context(), func(ctx context.Context, q db.Directory) error {
			created, err := bootstrapAdmin(ctx, q, email, password)
			if err != nil {
				return err
			}
			if !created {
				cmd.Println("admin user already exists; nothing to do")
				return nil
			}
			cmd.Printf("created admin user: %s\n", email)
			if generated {
				cmd.Printf("generated password: %s\n", password)
			}
			return nil
		})
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with the given roles.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := newAccount{
			Email: createUserEmail,
			Name:  createUserName,
			Phone: createUserPhone,
			Roles: createUserRoles,
		}
		password, generated, err := resolvePassword(cmd, createUserPass)
		if err != nil {
			return err
		}
		params.Password = password

		return withDirectory(cmd.Context(), func(ctx context.Context, q db.Directory) error {
			user, err := createAccount(ctx, q, params)
			if err != nil {
				return err
			}
			cmd.Printf("created user: %s (%s) roles=%s\n", user.Email, user.ID, strings.Join(user.Roles, ","))
			if generated {
				cmd.Printf("generated password: %s\n", password)
			}
			return nil
		})
	},
}

func withDirectory(parent context.Context, fn func(ctx context.Context, q db.Directory) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, usersCommandTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.New(pool))
}

// bootstrapAdmin creates email as an admin unless an active admin exists.
func bootstrapAdmin(ctx context.Context, q db.Directory, email, password string) (bool, error) {
	adminCount, err := q.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if adminCount > 0 {
		return false, nil
	}

	if _, err := createAccount(ctx, q, newAccount{
		Email:    email,
		Password: password,
		Roles:    []string{string(auth.RoleAdmin)},
	}); err != nil {
		return false, err
	}
	return true, nil
}

type newAccount struct {
	Email    string
	Name     string
	Phone    string
	Password string
	Roles    []string
}

// createAccount validates and stores an account. Roles are normalized and
// must all be known; an account with no role routes like a patient.
func createAccount(ctx context.Context, q db.Directory, a newAccount) (db.User, error) {
	email := auth.NormalizeEmail(a.Email)
	if email == "" {
		return db.User{}, errors.New("--email is required")
	}

	roles := make([]auth.Role, 0, len(a.Roles))
	for _, raw := range a.Roles {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			r := auth.ParseRole(part)
			if r == auth.RoleNone {
				return db.User{}, fmt.Errorf("unknown role %q (want one of: %s)", strings.TrimSpace(part), strings.Join(auth.RoleStrings(auth.AllRoles()), ", "))
			}
			roles = append(roles, r)
		}
	}

	if err := auth.ValidatePassword(a.Password); err != nil {
		return db.User{}, fmt.Errorf("%w (minimum %d characters)", err, auth.MinPasswordLength)
	}

	if _, err := q.GetUserByEmail(ctx, email); err == nil {
		return db.User{}, fmt.Errorf("user already exists: %s", email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, err
	}

	hash, err := auth.HashPassword(a.Password)
	if err != nil {
		return db.User{}, err
	}

	user, err := q.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		Name:         strings.TrimSpace(a.Name),
		Phone:        strings.TrimSpace(a.Phone),
		PasswordHash: hash,
		Roles:        auth.RoleStrings(auth.NormalizeRoles(roles)),
		IsActive:     true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return db.User{}, fmt.Errorf("user already exists: %s", email)
		}
		return db.User{}, err
	}
	return user, nil
}

func resolvePassword(cmd *cobra.Command, f passwordFlags) (string, bool, error) {
	if f.stdin && f.generate {
		return "", false, errors.New("--password-stdin and --generate-password are mutually exclusive")
	}
	if f.stdin && f.password != "" {
		return "", false, errors.New("--password-stdin and --password are mutually exclusive")
	}
	if f.generate && f.password != "" {
		return "", false, errors.New("--generate-password and --password are mutually exclusive")
	}

	switch {
	case f.stdin:
		if isTerminal(os.Stdin) {
			return "", false, errors.New("stdin is a terminal; use --password or omit to prompt")
		}
		raw, err := readFirstLine(cmd.InOrStdin())
		if err != nil {
			return "", false, err
		}
		password := strings.TrimRight(raw, "\r\n")
		if password == "" {
			return "", false, errors.New("password is empty")
		}
		return password, false, nil
	case f.generate:
		password, err := generatePassword(24)
		if err != nil {
			return "", false, err
		}
		return password, true, nil
	case f.password != "":
		return f.password, false, nil
	}

	if !isTerminal(os.Stdin) {
		return "", false, errors.New("no password provided (use --password, --password-stdin, or --generate-password)")
	}

	cmd.Print("Password: ")
	pass1, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", false, err
	}
	if len(pass1) == 0 {
		return "", false, errors.New("password is empty")
	}

	cmd.Print("Confirm password: ")
	pass2, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", false, err
	}
	if string(pass1) != string(pass2) {
		return "", false, errors.New("passwords do not match")
	}
	return string(pass1), false, nil
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func readFirstLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}

func generatePassword(length int) (string, error) {
	if length < 16 {
		return "", errors.New("password length too short")
	}
	const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const alphabetLen = byte(len(alphabet))
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[b[i]%alphabetLen]
	}
	return string(b), nil
}

func init() {
	usersCmd.AddCommand(bootstrapAdminCmd, createUserCmd)

	bootstrapAdminCmd.Flags().StringVar(&bootstrapAdminEmail, "email", "", "Email address for the admin user")
	bootstrapAdminPass.register(bootstrapAdminCmd)
	_ = bootstrapAdminCmd.MarkFlagRequired("email")

	createUserCmd.Flags().StringVar(&createUserEmail, "email", "", "Email address for the account")
	createUserCmd.Flags().StringVar(&createUserName, "name", "", "Display name")
	createUserCmd.Flags().StringVar(&createUserPhone, "phone", "", "Phone number")
	createUserCmd.Flags().StringSliceVar(&createUserRoles, "role", nil, "Role to grant (patient, doctor, admin); repeatable")
	createUserPass.register(createUserCmd)
	_ = createUserCmd.MarkFlagRequired("email")
}
