package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"souq/server/internal/identity"
	"souq/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	auth := AuthMiddleware(AuthConfig{
		Secret:     secret,
		Normalizer: identity.NewNormalizer("964"),
		AdminPhone: "9647700000001",
	})
	app.Get("/me", auth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": GetUserID(c), "identity": GetIdentity(c), "admin": IsAdmin(c)})
	})
	app.Get("/admin", auth, RequireAdmin, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func token(t *testing.T, id int64, phone, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(secret, id, phone, "buyer", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func get(t *testing.T, app *fiber.App, target string, h map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range h {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAuth_NoToken(t *testing.T) {
	status, _ := get(t, newApp(), "/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuth_InvalidToken(t *testing.T) {
	status, _ := get(t, newApp(), "/me", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuth_TokenSources(t *testing.T) {
	app := newApp()
	tok := token(t, 7, "&#x2B;9647812345678", "")

	for name, h := range map[string]map[string]string{
		"bearer": {"Authorization": "Bearer " + tok},
		"cookie": {"Cookie": "token=" + tok},
	} {
		t.Run(name, func(t *testing.T) {
			status, out := get(t, app, "/me", h)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Contains(t, out, `"identity":"+9647812345678"`)
			assert.Contains(t, out, `"id":7`)
		})
	}

	status, _ := get(t, app, "/me?token="+tok, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRequireAdmin(t *testing.T) {
	app := newApp()

	status, _ := get(t, app, "/admin", map[string]string{"Authorization": "Bearer " + token(t, 2, "+9647800000002", "")})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = get(t, app, "/admin", map[string]string{"Authorization": "Bearer " + token(t, 3, "+9647800000003", RoleAdmin)})
	assert.Equal(t, fiber.StatusOK, status)

	// The configured admin phone is admin without the role claim.
	status, _ = get(t, app, "/admin", map[string]string{"Authorization": "Bearer " + token(t, 1, "+9647700000001", "")})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RateLimiter(2, time.Minute), func(c *fiber.Ctx) error { return c.SendString("ok") })

	codes := []int{}
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestModerateRateLimiter_KeyedByIdentity(t *testing.T) {
	app := fiber.New()
	app.Put("/x", func(c *fiber.Ctx) error {
		c.Locals("identity", c.Get("X-Identity"))
		return c.Next()
	}, ModerateRateLimiter(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	put := func(identity string) int {
		req := httptest.NewRequest("PUT", "/x", nil)
		req.Header.Set("X-Identity", identity)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	for i := 0; i < 30; i++ {
		require.Equal(t, fiber.StatusOK, put("+9647700000001"), "request %d", i+1)
	}
	assert.Equal(t, fiber.StatusTooManyRequests, put("+9647700000001"))
	assert.Equal(t, fiber.StatusOK, put("+9647700000002"))
}
