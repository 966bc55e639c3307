package user

import (
	"net/http"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusUnauthorized, "user is inactive")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password is too short")
	ErrInvalidRole        = apperror.New(http.StatusBadRequest, "invalid staff role")
)

// User is a staff account. Requesters never have one.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	Role         auth.Role
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// UserFilter defines filter options for listing users.
type UserFilter struct {
	Email    string
	Role     auth.Role
	IsActive *bool // Use pointer to distinguish between false and nil (not set)

	Page      int
	PageSize  int
	SortOrder string
}

// CreateRequest describes a new staff account.
type CreateRequest struct {
	Email       string
	Password    string
	DisplayName string
	Role        auth.Role
}

// UpdateRequest changes role or activation. Nil fields are left unchanged.
type UpdateRequest struct {
	DisplayName *string
	Role        *auth.Role
	IsActive    *bool
}
