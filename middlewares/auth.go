package middlewares

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"vidgen-gateway/errno"
	"vidgen-gateway/models"
)

const (
	SessionCookie = "token"
	userLocal     = "user"
)

// ErrInvalidToken covers every reason a session token is rejected.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is our JWT payload (subject=userID, plus the email at login time).
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is the verified content of a token.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// IssueToken signs a token for the user that expires after the session TTL.
func (sm *SessionManager) IssueToken(userID, email string) (string, error) {
	now := sm.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secret)
}

// VerifyToken fails closed: any problem yields ErrInvalidToken and no session.
func (sm *SessionManager) VerifyToken(raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(sm.secret) == 0 {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return sm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	// expiry is checked against our clock so tests can move time
	if claims.ExpiresAt == nil || !sm.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &Session{UserID: claims.Subject, Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// SetCookie stores token in the session cookie.
func (sm *SessionManager) SetCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		Expires:  sm.now().Add(sm.ttl),
		HTTPOnly: true,
		Secure:   sm.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (sm *SessionManager) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  sm.now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   sm.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// UserFinder loads the user a session refers to; nil means no such user.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// CurrentUser resolves the session cookie to a user and stores it in
// c.Locals. Missing cookies, bad tokens and deleted users all leave the
// request anonymous.
func CurrentUser(sm *SessionManager, users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(SessionCookie)
		if raw == "" {
			return c.Next()
		}
		sess, err := sm.VerifyToken(raw)
		if err != nil {
			return c.Next()
		}
		user, err := users.FindUserByID(c.UserContext(), sess.UserID)
		if err != nil || user == nil {
			return c.Next()
		}
		c.Locals(userLocal, user)
		return c.Next()
	}
}

// RequireUser rejects anonymous requests. Run it after CurrentUser.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserFrom(c) == nil {
			return errno.ErrAuthRequired
		}
		return c.Next()
	}
}

// UserFrom returns the signed-in user, or nil.
func UserFrom(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}

// OwnerID is the current user's id, or nil for anonymous requests.
func OwnerID(c *fiber.Ctx) *string {
	if user := UserFrom(c); user != nil {
		id := user.Id
		return &id
	}
	return nil
}
