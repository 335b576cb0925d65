package user

import (
	"errors"

	policies "ppm-backend/internal/application/policies/user"
	usersvc "ppm-backend/internal/application/user"
	"ppm-backend/internal/domain"
	"ppm-backend/internal/middleware"
	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves account administration under /api/v1/users.
type Handlers struct {
	Service *usersvc.Service
}

// List GET /api/v1/users?department=
func (h *Handlers) List(c *fiber.Ctx) error {
	users, err := h.Service.ListUsers(c.Context(), c.Query("department"))
	if err != nil {
		log.Error().Err(err).Msg("list users")
		return response.Internal(c)
	}
	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, safeUser(&users[i]))
	}
	return response.Success(c, "Users retrieved", fiber.Map{"users": out}, fiber.Map{"count": len(out)})
}

// Me GET /api/v1/users/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor := getSessionActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	return h.view(c, actor.UserID)
}

// View GET /api/v1/users/:id
func (h *Handlers) View(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	return h.view(c, id)
}

func (h *Handlers) view(c *fiber.Ctx, id string) error {
	u, err := h.Service.ViewUser(c.Context(), id)
	if err != nil {
		if errors.Is(err, usersvc.ErrUserNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		log.Error().Err(err).Str("user_id", id).Msg("view user")
		return response.Internal(c)
	}
	return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/:id/role. Requires assign_role on the route.
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil || req.Role == "" {
		return response.Error(c, "role is required", fiber.StatusBadRequest, nil)
	}
	actor := getSessionActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	u, err := h.Service.UpdateUserRole(c.Context(), usersvc.UpdateUserRoleInput{
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		TargetUserID: id,
		TargetRole:   req.Role,
	})
	if err != nil {
		return mapRoleError(c, err)
	}
	log.Info().Str("actor", actor.UserID).Str("target", id).Str("role", req.Role).Msg("role updated")
	return response.Success(c, "User role updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

type sessionActor struct {
	UserID string
	Role   string
}

func getSessionActor(c *fiber.Ctx) *sessionActor {
	m, ok := middleware.GetUser(c).(map[string]interface{})
	if !ok {
		return nil
	}
	userID, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	if userID == "" || role == "" {
		return nil
	}
	return &sessionActor{UserID: userID, Role: role}
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":    u.UserID.String(),
		"fullname":   u.Fullname,
		"email":      u.Email,
		"role":       u.Role,
		"department": u.Department,
		"createdAt":  u.CreatedAt,
		"updatedAt":  u.UpdatedAt,
	}
}

func mapRoleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, policies.ErrInvalidRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, policies.ErrTargetUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, policies.ErrOnlySuperadminsCanAssignAdminOrSuperadmin),
		errors.Is(err, policies.ErrOnlySuperadminsCanChangeAdmins),
		errors.Is(err, policies.ErrUsersCannotModifyTheirOwnRole):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, policies.ErrMustKeepOneSuperadmin):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Error().Err(err).Msg("update role")
	return response.Internal(c)
}
