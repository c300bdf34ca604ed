package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxInquiryRunes     int
	MaxSourceContent    int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware screens write requests before the handlers see them: content
// type, inquiry text length, and knowledge source URI shape.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxInquiryRunes == 0 {
		cfg.MaxInquiryRunes = 5000
	}
	if cfg.MaxSourceContent == 0 {
		cfg.MaxSourceContent = 1 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "text/plain", "message/rfc822"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" || c.Method() == "PATCH" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if c.Method() == "POST" && strings.HasSuffix(path, "/inquiries") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			text, ok := req["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Inquiry text is required",
				})
			}

			if utf8.RuneCountInString(text) > cfg.MaxInquiryRunes {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Inquiry text exceeds maximum length",
				})
			}

			if xssPattern.MatchString(text) {
				cfg.Logger.Warn("Potential XSS attempt in inquiry",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid inquiry content",
				})
			}
		}

		if c.Method() == "POST" && strings.HasSuffix(path, "/knowledge") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if sourceType, _ := req["type"].(string); sourceType == "url" {
				uri, ok := req["uri"].(string)
				if !ok || !isValidURL(uri) {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Invalid source URI",
					})
				}
			}

			content, ok := req["content"].(string)
			if ok && len(content) > cfg.MaxSourceContent {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Source content exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}
