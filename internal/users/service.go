package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/auth"
	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	pkgerrors "github.com/edures/resourcedesk-backend/pkg/errors"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/security"
)

const tempPasswordLength = 16

// CreateUserInput holds the payload to provision an account.
type CreateUserInput struct {
	Username string
	Email    string
	Role     enums.UserRole
	School   *string
}

// Service exposes authentication and account administration. All mutating
// account operations are restricted to the super admin.
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	CreateUser(ctx context.Context, actorRole enums.UserRole, input CreateUserInput) (*CreatedUserDTO, error)
	ListUsers(ctx context.Context, actorRole enums.UserRole) ([]UserDTO, error)
	SetActive(ctx context.Context, actorRole enums.UserRole, actorID, userID uuid.UUID, active bool) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, updated string) error
}

type service struct {
	repo        *Repository
	jwtConfig   config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs the user service.
func NewService(repo *Repository, jwtConfig config.JWTConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, jwtConfig: jwtConfig, passwordCfg: passwordCfg, logg: logg}, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is deactivated")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	school := ""
	if user.School != nil {
		school = *user.School
	}
	token, err := auth.MintAccessToken(s.jwtConfig, time.Now(), auth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		School: school,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	return &LoginResult{Token: token, User: toUserDTO(*user)}, nil
}

func (s *service) CreateUser(ctx context.Context, actorRole enums.UserRole, input CreateUserInput) (*CreatedUserDTO, error) {
	if err := requireSuperAdmin(actorRole); err != nil {
		return nil, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}

	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username is taken")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking username")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		School:       input.School,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"role":    user.Role.String(),
	}), "account provisioned")
	return &CreatedUserDTO{UserDTO: toUserDTO(*user), TempPassword: tempPassword}, nil
}

func (s *service) ListUsers(ctx context.Context, actorRole enums.UserRole) ([]UserDTO, error) {
	if err := requireSuperAdmin(actorRole); err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing accounts")
	}
	out := make([]UserDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toUserDTO(row))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, actorRole enums.UserRole, actorID, userID uuid.UUID, active bool) (*UserDTO, error) {
	if err := requireSuperAdmin(actorRole); err != nil {
		return nil, err
	}
	if !active && actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}

	user.IsActive = active
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating account")
	}
	dto := toUserDTO(*user)
	return &dto, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, updated string) error {
	if len(updated) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must be at least 8 characters")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}

	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(updated, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	user.PasswordHash = hash
	if err := s.repo.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating account")
	}
	return nil
}

func requireSuperAdmin(role enums.UserRole) error {
	if role != enums.UserRoleSuperAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "super admin access required")
	}
	return nil
}
