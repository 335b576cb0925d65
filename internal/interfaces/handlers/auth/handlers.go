package auth

import (
	"errors"

	authsvc "ppm-backend/internal/application/auth"
	"ppm-backend/internal/middleware"
	"ppm-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login. Starts a fresh session, tracks it under the
// user's session set and sets the ppm.sid cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Internal(c)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authsvc.ErrEmailPasswordRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
		middleware.Logger(c).Info().Str("email", req.Email).Msg("login rejected")
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	default:
		middleware.Logger(c).Error().Err(err).Msg("login lookup")
		return response.Internal(c)
	}

	sessionID := middleware.RegenerateSessionID(c)
	su := middleware.SessionUser{
		UserID:     user.UserID.String(),
		Fullname:   user.Fullname,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
	}
	middleware.SetSessionUser(c, su)
	if err := middleware.TrackSession(c.UserContext(), h.Rdb, su.UserID, sessionID); err != nil {
		middleware.Logger(c).Error().Err(err).Msg("track session")
		return response.Internal(c)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	middleware.Logger(c).Info().Str("user_id", su.UserID).Str("role", su.Role).Msg("login")
	return response.Success(c, "Login successful", fiber.Map{"user": su}, nil)
}

// Me GET /api/v1/auth/me returns the session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, err := authsvc.VerifyUser(middleware.GetUser(c))
	if err != nil {
		middleware.Logger(c).Debug().
			Bool("session_id_present", middleware.GetSessionID(c) != "").
			Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// Logout DELETE /api/v1/auth/logout. Drops the session key and its entry in
// the user's session set, then expires the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if sessionID := middleware.GetSessionID(c); sessionID != "" {
		if uid := middleware.GetUserID(c); uid != "" {
			_ = middleware.UntrackSession(ctx, h.Rdb, uid, sessionID)
		}
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	cookie.Domain = h.Config.CookieDomain
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
