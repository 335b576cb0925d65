package user

import (
	"context"
	"errors"
	"strings"

	policies "ppm-backend/internal/application/policies/user"
	"ppm-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("User not found")

// Service holds DB and Redis for account administration.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// ListUsers returns accounts ordered by email, optionally filtered by department.
func (s *Service) ListUsers(ctx context.Context, department string) ([]domain.User, error) {
	q := s.DB.WithContext(ctx).Order("email")
	if d := strings.TrimSpace(department); d != "" {
		q = q.Where("department = ?", d)
	}
	var users []domain.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ViewUser returns user by ID.
func (s *Service) ViewUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, errors.New("Missing user ID")
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

type UpdateUserRoleInput struct {
	ActorUserID  string
	ActorRole    string
	TargetUserID string
	TargetRole   string
}

// UpdateUserRole changes the target's role after the governance check and
// destroys their sessions so the new permissions apply immediately.
func (s *Service) UpdateUserRole(ctx context.Context, in UpdateUserRoleInput) (*domain.User, error) {
	u, err := policies.ValidateRoleAssignment(ctx, s.DB, policies.ValidateRoleAssignmentParams{
		ActorRole:    in.ActorRole,
		TargetRole:   in.TargetRole,
		ActorUserID:  in.ActorUserID,
		TargetUserID: in.TargetUserID,
	})
	if err != nil {
		return nil, err
	}
	u.Role = in.TargetRole
	if err := s.DB.WithContext(ctx).Model(u).Update("role", in.TargetRole).Error; err != nil {
		return nil, err
	}
	policies.DestroyUserSessions(ctx, s.Rdb, in.TargetUserID)
	return u, nil
}
