package helper

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewPaging(t *testing.T) {
	p := NewPaging(0, 0, 20, 200)
	assert.Equal(t, Paging{Page: 1, PerPage: 20, Offset: 0, Limit: 20}, p)

	p = NewPaging(3, 500, 20, 200)
	assert.Equal(t, 200, p.PerPage)
	assert.Equal(t, 400, p.Offset)
}

func TestBuildPaginationFromPage(t *testing.T) {
	pg := BuildPaginationFromPage(41, 2, 20)
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext)
	assert.True(t, pg.HasPrev)

	pg = BuildPaginationFromPage(0, 1, 20)
	assert.Equal(t, 1, pg.TotalPages)
	assert.False(t, pg.HasNext)
}

type probe struct {
	Title    string   `json:"title" validate:"required,notblank"`
	Channels []string `json:"channels" validate:"min=1,dive,oneof=Email SMS"`
}

func TestTranslateValidation(t *testing.T) {
	err := Validate.Struct(probe{Title: "   ", Channels: []string{"Fax"}})
	require.Error(t, err)
	fields := TranslateValidation(err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "channels[0]")
	assert.Equal(t, []string{"title must not be blank"}, fields["title"])

	fields = TranslateValidation(errors.New("boom"))
	assert.Equal(t, []string{"boom"}, fields["_"])
}

func decodeBody(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestEnvelopes(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: FiberErrorHandler})
	app.Get("/list", func(c *fiber.Ctx) error {
		pg := BuildPaginationFromPage(3, 1, 2)
		return JsonListEx(c, "", []int{1, 2}, &pg, fiber.Map{"pendingCount": 1})
	})
	app.Get("/created", func(c *fiber.Ctx) error { return JsonCreated(c, "link created", fiber.Map{"id": 1}) })
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return FromError(c, fiber.NewError(fiber.StatusConflict, "payment link is completed"))
	})
	app.Get("/missing", func(c *fiber.Ctx) error { return FromError(c, errors.Wrap(gorm.ErrRecordNotFound, "load")) })
	app.Get("/invalid", func(c *fiber.Ctx) error { return FromError(c, Validate.Struct(probe{})) })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db down") })

	code, body := decodeBody(t, app, "/list")
	assert.Equal(t, 200, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ok", body["message"])
	assert.NotNil(t, body["pagination"])
	assert.Equal(t, float64(1), body["includes"].(map[string]any)["pendingCount"])

	code, body = decodeBody(t, app, "/created")
	assert.Equal(t, 201, code)
	assert.Equal(t, "link created", body["message"])

	code, body = decodeBody(t, app, "/conflict")
	assert.Equal(t, 409, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "CONFLICT", body["error_code"])

	code, body = decodeBody(t, app, "/missing")
	assert.Equal(t, 404, code)
	assert.Equal(t, "NOT_FOUND", body["error_code"])

	code, body = decodeBody(t, app, "/invalid")
	assert.Equal(t, 422, code)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	assert.Contains(t, body["errors"], "title")

	code, body = decodeBody(t, app, "/boom")
	assert.Equal(t, 500, code)
	assert.Equal(t, "INTERNAL_ERROR", body["error_code"])
}
