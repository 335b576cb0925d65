package policies

import "errors"

var (
	ErrOnlySuperadminsCanAssignAdminOrSuperadmin = errors.New("Only superadmins can assign admin or superadmin roles")
	ErrOnlySuperadminsCanChangeAdmins            = errors.New("Only superadmins can change the role of an admin")
	ErrTargetUserNotFound                        = errors.New("Target user not found")
	ErrUsersCannotModifyTheirOwnRole             = errors.New("Users cannot modify their own role")
	ErrMustKeepOneSuperadmin                     = errors.New("At least one superadmin must remain")
	ErrInvalidRole                               = errors.New("Invalid role")
)
