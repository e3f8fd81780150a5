package hospital

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// DefaultAdminUsername is created on first start when no admin exists.
const DefaultAdminUsername = "admin"

// Action is an operation offered by the console that may be restricted by role.
type Action string

const (
	ActionViewBeds       Action = "view-beds"
	ActionAddBed         Action = "add-bed"
	ActionAdmit          Action = "admit"
	ActionTransfer       Action = "transfer"
	ActionDischarge      Action = "discharge"
	ActionSearchPatients Action = "search-patients"
	ActionReports        Action = "reports"
	ActionAlerts         Action = "alerts"
	ActionBackup         Action = "backup"
	ActionUndo           Action = "undo"
	ActionCreateUser     Action = "create-user"
)

var adminOnly = map[Action]bool{
	ActionAddBed:     true,
	ActionBackup:     true,
	ActionCreateUser: true,
}

// Can reports whether the user's role allows the action.
func (u *User) Can(a Action) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleClerk:
		return !adminOnly[a]
	default:
		return false
	}
}

// Auth manages console users.
type Auth struct {
	store  recordStore
	logger *zap.Logger
	cost   int
}

func NewAuth(db *Database) *Auth {
	return &Auth{store: db.store(), logger: db.logger, cost: bcryptCost}
}

// HashPassword generates a bcrypt hash from a plain text password.
func (a *Auth) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	return string(b), err
}

// CreateUser stores a new user with a bcrypt password hash.
func (a *Auth) CreateUser(username, password string, role Role) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("username cannot be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("password cannot be empty: %w", ErrValidation)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return 0, err
	}

	hash, err := a.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := a.store.insert(`INSERT INTO users(username,password_hash,role) VALUES(?,?,?)`, username, hash, string(role))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("user %q already exists: %w", username, ErrConflict)
		}
		return 0, err
	}
	a.logger.Info("user created", zap.String("username", username), zap.String("role", string(role)))
	return id, nil
}

// Authenticate returns the user when username and password match.
func (a *Auth) Authenticate(username, password string) (*User, error) {
	var u User
	var role string
	err := a.store.queryOne(`SELECT user_id, username, password_hash, role FROM users WHERE username=?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		a.logger.Warn("login failed", zap.String("username", username), zap.String("reason", "unknown user"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("login failed", zap.String("username", username), zap.String("reason", "bad password"))
		return nil, ErrInvalidCredentials
	}
	u.Role = Role(role)
	a.logger.Info("login", zap.String("username", username), zap.String("role", role))
	return &u, nil
}

// EnsureAdminExists creates the default admin account when there is no admin.
// It reports whether an account was created.
func (a *Auth) EnsureAdminExists(defaultPassword string) (bool, error) {
	var n int
	if err := a.store.queryOne(`SELECT COUNT(*) FROM users WHERE role=?`, string(RoleAdmin)).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := a.CreateUser(DefaultAdminUsername, defaultPassword, RoleAdmin); err != nil {
		return false, err
	}
	a.logger.Warn("default admin account created", zap.String("username", DefaultAdminUsername))
	return true, nil
}
