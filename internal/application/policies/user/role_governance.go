package policies

import (
	"context"
	"errors"

	"ppm-backend/internal/domain"
	"ppm-backend/internal/pkg/constants"

	"gorm.io/gorm"
)

type ValidateRoleAssignmentParams struct {
	ActorRole    string
	TargetRole   string
	ActorUserID  string
	TargetUserID string
}

// ValidateRoleAssignment returns the target user when the actor may give them
// TargetRole. Admins manage managers and viewers; superadmins manage everyone.
// The last superadmin cannot be demoted.
func ValidateRoleAssignment(ctx context.Context, db *gorm.DB, params ValidateRoleAssignmentParams) (*domain.User, error) {
	if !constants.IsValidRole(params.TargetRole) {
		return nil, ErrInvalidRole
	}
	if constants.AtLeast(params.TargetRole, constants.Admin) && params.ActorRole != constants.Superadmin {
		return nil, ErrOnlySuperadminsCanAssignAdminOrSuperadmin
	}
	var target domain.User
	if err := db.WithContext(ctx).Where("user_id = ?", params.TargetUserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	if params.ActorUserID == params.TargetUserID && params.ActorRole != constants.Superadmin {
		return nil, ErrUsersCannotModifyTheirOwnRole
	}
	if constants.AtLeast(target.Role, constants.Admin) && params.ActorRole != constants.Superadmin {
		return nil, ErrOnlySuperadminsCanChangeAdmins
	}
	if target.Role == constants.Superadmin && params.TargetRole != constants.Superadmin {
		var count int64
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("role = ?", constants.Superadmin).Count(&count).Error; err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, ErrMustKeepOneSuperadmin
		}
	}
	return &target, nil
}
