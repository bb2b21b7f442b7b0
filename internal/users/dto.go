package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
)

// UserDTO is an account as exposed to clients. The password hash never
// leaves this package.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
	School    *string        `json:"school,omitempty"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CreatedUserDTO carries the one-time temporary password alongside the new
// account.
type CreatedUserDTO struct {
	UserDTO
	TempPassword string `json:"tempPassword"`
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func toUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		School:    user.School,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
