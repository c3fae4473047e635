package middlewares

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"vidgen-gateway/errno"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
// Every failure leaves as {"error": message}.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			entry := log.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID(c),
				"method":     c.Method(),
				"path":       c.Path(),
				"status":     code,
			})
			if errno.IsRetryable(err) {
				entry.Warn("upstream unavailable")
			} else {
				entry.Error("request failed")
			}
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// StatusFor maps err to the status code and client-safe message.
func StatusFor(err error) (int, string) {
	// 1) our own taxonomy
	if e, ok := errno.From(err); ok {
		return e.Code, e.Message
	}

	// 2) Fiber errors (use their status code + message)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	// 3) Validation errors (400 + first failing field)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fiber.StatusBadRequest, validationMessage(ve[0])
	}

	// 4) Unknown errors (500)
	return fiber.StatusInternalServerError, errno.ErrInternal.Message
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return field + " is invalid"
}
