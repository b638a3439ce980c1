package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hnakamura/project-management-api/internal/authz"
	"github.com/hnakamura/project-management-api/internal/constants"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/hnakamura/project-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserManageForbidden = errors.New("user management requires admin role")
	ErrInvalidUserRole     = errors.New("invalid user role")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrWrongPassword       = errors.New("current password is incorrect")
)

// UserService covers account administration. Every operation takes the
// acting user explicitly and consults the authorization policy.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// CreateUserInput represents input for admin user creation.
type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     models.UserRole
}

// CreateUser creates an account with an explicit role. Admin only.
func (s *UserService) CreateUser(actor *models.User, input CreateUserInput) (*models.User, error) {
	if !authz.Decide(actor, authz.UserManage, authz.Target{}) {
		return nil, ErrUserManageForbidden
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if username == "" || email == "" || fullName == "" {
		return nil, ErrMissingRequiredField
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidUserRole
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ListUsers lists all accounts. Admin only.
func (s *UserService) ListUsers(actor *models.User, params utils.PaginationParams) ([]models.User, int64, error) {
	if !authz.Decide(actor, authz.UserManage, authz.Target{}) {
		return nil, 0, ErrUserManageForbidden
	}

	users, total, err := s.userRepo.List(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns a user's profile. Users can see their own profile;
// anything else requires admin.
func (s *UserService) GetUser(actor *models.User, id uint64) (*models.User, error) {
	if actor.ID != id && !authz.Decide(actor, authz.UserManage, authz.Target{}) {
		return nil, ErrUserManageForbidden
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// UpdateUserInput represents a partial user update.
type UpdateUserInput struct {
	Email    *string
	FullName *string
	Role     *models.UserRole
}

// UpdateUser updates a profile. Users may edit their own email and full
// name; role changes require admin.
func (s *UserService) UpdateUser(actor *models.User, id uint64, input UpdateUserInput) (*models.User, error) {
	isAdmin := authz.Decide(actor, authz.UserManage, authz.Target{})
	if actor.ID != id && !isAdmin {
		return nil, ErrUserManageForbidden
	}
	if input.Role != nil && !isAdmin {
		return nil, ErrUserManageForbidden
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, ErrMissingRequiredField
		}
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}
	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return nil, ErrMissingRequiredField
		}
		user.FullName = fullName
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidUserRole
		}
		user.Role = *input.Role
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteUser soft deletes an account. Admin only; self-deletion is
// rejected. Tasks and projects referencing the user keep their rows.
func (s *UserService) DeleteUser(actor *models.User, id uint64) error {
	if !authz.Decide(actor, authz.UserManage, authz.Target{}) {
		return ErrUserManageForbidden
	}
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}

	if _, err := s.userRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.userRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(actor *models.User, currentPassword, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	actor.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(actor); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
