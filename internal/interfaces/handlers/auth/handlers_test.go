package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "ppm-backend/internal/application/auth"
	"ppm-backend/internal/domain"
	"ppm-backend/internal/middleware"
	"ppm-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T, finder authsvc.UserFinder) (*fiber.App, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := &Handlers{UserFinder: finder, Rdb: rdb}
	app := fiber.New()
	app.Use(middleware.SessionWithClient(rdb))
	app.Post("/login", h.Login)
	app.Get("/me", h.Me)
	app.Delete("/logout", h.Logout)
	return app, mr
}

func memoryUsers(t *testing.T) *authsvc.MemoryUsers {
	users, err := authsvc.NewMemoryUsers(
		[]domain.User{{Email: "sam@example.com", Fullname: "Sam Planner", Role: constants.Manager}},
		[]string{"Passw0rd!"},
	)
	require.NoError(t, err)
	return users
}

func login(t *testing.T, app *fiber.App, email, password string) *http.Response {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin_Rejections(t *testing.T) {
	app, _ := setupAuth(t, memoryUsers(t))
	cases := []struct {
		name, email, password string
		want                  int
	}{
		{"missing fields", "", "", fiber.StatusBadRequest},
		{"unknown email", "nobody@example.com", "Passw0rd!", fiber.StatusUnauthorized},
		{"wrong password", "sam@example.com", "nope", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := login(t, app, tc.email, tc.password)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.Nil(t, sessionCookie(resp))
		})
	}
}

func TestLogin_NilUserFinder(t *testing.T) {
	app, _ := setupAuth(t, nil)
	resp := login(t, app, "a@b.com", "pass")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestLogin_MeLogout(t *testing.T) {
	app, mr := setupAuth(t, memoryUsers(t))

	resp := login(t, app, "SAM@example.com", "Passw0rd!")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data struct {
			User middleware.SessionUser `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Sam Planner", out.Data.User.Fullname)
	assert.Equal(t, constants.Manager, out.Data.User.Role)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	setKey := middleware.UserSessionsPrefix + out.Data.User.UserID
	require.True(t, mr.Exists(setKey))
	assert.True(t, mr.TTL(setKey) > 0)

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/logout", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	members, _ := mr.SMembers(setKey)
	assert.Empty(t, members)

	req = httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_NoSession(t *testing.T) {
	app, _ := setupAuth(t, memoryUsers(t))
	resp, err := app.Test(httptest.NewRequest("DELETE", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Values("Set-Cookie"))
}
