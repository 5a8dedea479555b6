package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func identityApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTProtected(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals(LocalUserID),
			"name": c.Locals(LocalUserName),
			"role": c.Locals(LocalUserRole),
		})
	})
	return app
}

func TestJWTProtectedStoresIdentity(t *testing.T) {
	app := identityApp()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "T1",
		"name": "Mr. Thapa",
		"role": "Teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "T1", payload["id"])
	require.Equal(t, "Mr. Thapa", payload["name"])
	require.Equal(t, "teacher", payload["role"])
}

func TestJWTProtectedAcceptsQueryToken(t *testing.T) {
	app := identityApp()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "S1", "role": "student"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := identityApp()

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"bad secret":   "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "S1", "role": "student"}),
		"no role":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "S1"}),
		"expired": "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "S1", "role": "student", "exp": time.Now().Add(-time.Hour).Unix(),
		}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
