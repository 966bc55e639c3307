package http

import (
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/request"
	"github.com/gracefellowship/church-admin-backend/internal/user"
)

// ListUsersRequest defines query parameters for listing users.
type ListUsersRequest struct {
	request.ListParams
	Email    string `form:"email"`
	Role     string `form:"role" binding:"omitempty,oneof=admin pastor staff"`
	IsActive *bool  `form:"is_active"`
}

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	var lastLoginAt *time.Time
	if u.LastLoginAt != nil {
		ll := *u.LastLoginAt
		lastLoginAt = &ll
	}

	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: lastLoginAt,
	}
}

// CreateUserRequest defines the payload for creating a staff account.
type CreateUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required,oneof=admin pastor staff"`
}

// LoginRequest defines the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest defines fields allowed to be updated via PATCH /users/:id.
// Use pointers to distinguish between "field not sent" and "field sent as false/empty".
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role" binding:"omitempty,oneof=admin pastor staff"`
	IsActive    *bool   `json:"is_active"`
}

func (r *UpdateUserRequest) toDomain() user.UpdateRequest {
	req := user.UpdateRequest{
		DisplayName: r.DisplayName,
		IsActive:    r.IsActive,
	}
	if r.Role != nil {
		role := auth.Role(*r.Role)
		req.Role = &role
	}
	return req
}

// LoginResponse returns the token and user info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// MeResponse returns the current user info.
type MeResponse struct {
	User UserResponse `json:"user"`
}
