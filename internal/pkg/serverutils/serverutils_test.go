package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"conversation-core/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(apperror.Invalid("title", "is required")))
	assert.Equal(t, 404, StatusFor(apperror.NotFound("conversation", uuid.New())))
	assert.Equal(t, 500, StatusFor(apperror.Storage("insert", errors.New("disk full"))))
	assert.Equal(t, 500, StatusFor(errors.New("boom")))
	assert.Equal(t, 413, StatusFor(fiber.ErrRequestEntityTooLarge))
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/invalid", func(ctx *fiber.Ctx) error { return apperror.Invalid("limit", "must not be negative") })
	app.Get("/storage", func(ctx *fiber.Ctx) error { return apperror.Storage("insert", errors.New("secret driver detail")) })
	app.Get("/ok", func(ctx *fiber.Ctx) error { return ctx.JSON(SuccessResponse("fine", 1)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/invalid", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	var body BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "limit")

	resp, err = app.Test(httptest.NewRequest("GET", "/storage", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	body = BaseResponse[any]{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body.Message, "secret")

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "s3cret"
	app := fiber.New()
	app.Use(JwtMiddleware(secret))
	app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "local",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed+"x")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	open := fiber.New()
	open.Use(JwtMiddleware(""))
	open.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNoContent) })
	resp, err = open.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}
