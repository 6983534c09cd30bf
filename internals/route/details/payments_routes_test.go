package details

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub_backend/internals/databases/dbtest"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
	"tutorhub_backend/internals/helpers/notify"
	helperOSS "tutorhub_backend/internals/helpers/oss"
)

const testSecret = "route-test-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	exports, err := helperOSS.NewLocalStore(t.TempDir(), "http://localhost:8080/api/payments/exports")
	require.NoError(t, err)

	deps := PaymentsDeps{
		DB:               dbtest.Open(t),
		Cache:            cache.NewMemoryStore(),
		CacheTTL:         time.Minute,
		Sender:           notify.NewOutboxSender(0),
		Exports:          exports,
		LocalExports:     exports,
		PayBaseURL:       "https://pay.tutorhub.id",
		PublicAPIBaseURL: "http://localhost:8080/api",
		JWTSecret:        testSecret,
	}
	svcs, err := NewPaymentsServices(deps)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: helper.FiberErrorHandler,
	})
	PaymentsRoutes(app.Group("/api"), deps, svcs)
	return app
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   uuid.NewString(),
		"name": "Finance Admin",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func call(t *testing.T, app *fiber.App, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, sonic.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestStaffRoutesRequireRole(t *testing.T) {
	app := newTestApp(t)

	code, body := call(t, app, "GET", "/api/payments/links", "", nil)
	assert.Equal(t, 401, code)
	assert.Equal(t, false, body["success"])

	code, _ = call(t, app, "GET", "/api/payments/links", "not-a-jwt", nil)
	assert.Equal(t, 401, code)

	code, body = call(t, app, "GET", "/api/payments/analytics", token(t, "user"), nil)
	assert.Equal(t, 403, code)
	assert.Contains(t, body["message"], "payments")

	code, _ = call(t, app, "GET", "/api/payments/settings", token(t, "finance"), nil)
	assert.Equal(t, 200, code)
}

func TestCreateAndListLinks(t *testing.T) {
	app := newTestApp(t)
	admin := token(t, "admin")

	code, body := call(t, app, "POST", "/api/payments/links", admin, map[string]any{
		"title":               "Term 1 Tuition Fee",
		"amount":              25000,
		"allowPartialPayment": true,
		"partialPercentage":   50,
		"customFields":        []string{"Student ID", " Class "},
	})
	require.Equal(t, 201, code, body)
	link := body["data"].(map[string]any)
	assert.Equal(t, "term-1-tuition-fee", link["slug"])
	assert.Equal(t, "https://pay.tutorhub.id/pay/term-1-tuition-fee", link["url"])
	assert.Equal(t, float64(12500), link["minimumPayment"])
	assert.Equal(t, "Active", link["status"])
	assert.Equal(t, "Finance Admin", link["createdBy"])

	code, body = call(t, app, "GET", "/api/payments/links?status=Active", admin, nil)
	require.Equal(t, 200, code)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, link["id"], items[0].(map[string]any)["id"])

	// public pay page needs no token
	code, body = call(t, app, "GET", "/api/payments/checkout/term-1-tuition-fee", "", nil)
	assert.Equal(t, 200, code)
	assert.Equal(t, "Term 1 Tuition Fee", body["data"].(map[string]any)["title"])

	code, body = call(t, app, "POST", "/api/payments/checkout/term-1-tuition-fee", "", map[string]any{})
	assert.Equal(t, 503, code, "no gateway configured")
	assert.Equal(t, "UNAVAILABLE", body["error_code"])

	code, _ = call(t, app, "PUT", "/api/payments/links/"+link["id"].(string)+"/status", admin, map[string]any{})
	assert.Equal(t, 200, code)

	code, body = call(t, app, "GET", "/api/payments/links?status=Paused", admin, nil)
	require.Equal(t, 200, code)
	assert.Len(t, body["data"].([]any), 1, "status change invalidates the cached list")
}

func TestCreateLinkValidation(t *testing.T) {
	app := newTestApp(t)

	code, body := call(t, app, "POST", "/api/payments/links", token(t, "owner"), map[string]any{
		"title":  "   ",
		"amount": 0,
	})
	assert.Equal(t, 422, code)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "amount")
}
