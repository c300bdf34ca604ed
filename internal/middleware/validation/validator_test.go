package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.NewNop()}))
	app.Post("/api/v1/inquiries", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Post("/api/v1/knowledge", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestInquiryValidation(t *testing.T) {
	app := newTestApp()

	t.Run("valid inquiry passes", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/inquiries", `{"text":"ゴミの収集日を教えてください"}`)
		assert.Equal(t, fiber.StatusCreated, code)
	})

	t.Run("missing text rejected", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/inquiries", `{"channel":"web"}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("overlong text rejected", func(t *testing.T) {
		long := strings.Repeat("あ", 5001)
		code := postJSON(t, app, "/api/v1/inquiries", `{"text":"`+long+`"}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("script tag rejected", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/inquiries", `{"text":"<script>alert(1)</script>"}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("unsupported content type rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/inquiries", strings.NewReader("text"))
		req.Header.Set("Content-Type", "application/xml")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
	})
}

func TestKnowledgeValidation(t *testing.T) {
	app := newTestApp()

	t.Run("url source with valid uri passes", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/knowledge", `{"type":"url","name":"案内","uri":"https://example.jp/guide"}`)
		assert.Equal(t, fiber.StatusCreated, code)
	})

	t.Run("url source with bad scheme rejected", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/knowledge", `{"type":"url","name":"案内","uri":"ftp://example.jp"}`)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("faq source without uri passes", func(t *testing.T) {
		code := postJSON(t, app, "/api/v1/knowledge", `{"type":"faq","name":"FAQ","content":"本文"}`)
		assert.Equal(t, fiber.StatusCreated, code)
	})
}
