package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(role string, allowed ...string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals(LocalUserID, "u-1")
			c.Locals(LocalUserRole, role)
		}
		return c.Next()
	})
	app.Use(RequireRole(allowed...))
	app.Get("/queue", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsAuthorizedRoles(t *testing.T) {
	app := roleApp("teacher", " Teacher ")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/queue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoleRejectsUnauthorizedRoles(t *testing.T) {
	app := roleApp("student", "teacher", "admin", "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/queue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var payload struct {
		Details struct {
			AllowedRoles []string `json:"allowed_roles"`
		} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, []string{"admin", "teacher"}, payload.Details.AllowedRoles)
}

func TestRequireRoleRejectsAnonymous(t *testing.T) {
	app := roleApp("", "admin")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/queue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
