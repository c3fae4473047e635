package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidgen-gateway/errno"
	"vidgen-gateway/models"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	anonymousScope    = "anonymous"
	maxIdempotencyKey = 128
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped per user (anonymous callers share one scope). The first
// request claims the key; concurrent duplicates get 409 until it finishes.
// Only 2xx responses are kept, so a failed request can be retried with the
// same key. Run it after CurrentUser.
func Idempotency(db *gorm.DB, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(IdempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return errno.New(errno.ErrInvalidRequest, "Idempotency-Key too long")
		}

		scope := anonymousScope
		if owner := OwnerID(c); owner != nil {
			scope = *owner
		}
		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body(), scope)
		ctx := c.UserContext()

		// ---- Phase 1: claim the key, or find who holds it
		claim := models.IdempotencyKey{
			Key:         key,
			Scope:       scope,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
		}
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "scope"}, {Name: "key"}}, DoNothing: true}).
			Create(&claim)
		if res.Error != nil {
			return errno.Wrap(errno.ErrInternal, "", res.Error)
		}

		if res.RowsAffected == 0 {
			var existing models.IdempotencyKey
			if err := db.WithContext(ctx).Where("scope = ? AND key = ?", scope, key).First(&existing).Error; err != nil {
				return errno.Wrap(errno.ErrInternal, "", err)
			}
			if existing.RequestHash != reqHash {
				return errno.New(errno.ErrConflict, "Idempotency-Key reuse with different request")
			}
			if existing.CompletedAt == nil {
				return errno.New(errno.ErrConflict, "a request with this Idempotency-Key is still in progress")
			}
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		// ---- Phase 2: run the handler once, keep the response only on success
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil || status < 200 || status > 299 {
			if derr := db.WithContext(ctx).Delete(&models.IdempotencyKey{}, claim.ID).Error; derr != nil {
				log.WithError(derr).WithField("key", key).Warn("release idempotency key")
			}
			return err
		}

		now := time.Now().UTC()
		body := append([]byte(nil), c.Response().Body()...)
		if uerr := db.WithContext(ctx).Model(&models.IdempotencyKey{}).
			Where("id = ?", claim.ID).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   body,
				"completed_at":    &now,
			}).Error; uerr != nil {
			// best-effort: don't break the successful response
			log.WithError(uerr).WithField("key", key).Warn("store idempotent response")
		}
		return nil
	}
}

// requestHash is sha256 of method|path|body|scope.
func requestHash(method, path string, body []byte, scope string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(scope))
	return hex.EncodeToString(h.Sum(nil))
}
