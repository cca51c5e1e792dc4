// Package middleware provides the echo middleware shared by the routes:
// bearer token authentication, role checks, rate limiting and the
// response cache.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/booking"
)

const sessionKey = "session"

// JWTAuth validates an HS256 bearer token and stores the caller as a
// booking.Session under "session"; "user_id" and "role" are set too for
// the key builders. The secret must match the token issuer's.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			sess, ok := sessionFromClaims(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(sessionKey, sess)
			c.Set("user_id", strconv.FormatUint(sess.UserID, 10))
			c.Set("role", sess.Role)
			return next(c)
		}
	}
}

func sessionFromClaims(claims jwt.MapClaims) (booking.Session, bool) {
	var s booking.Session
	switch v := claims["sub"].(type) {
	case float64:
		if v < 1 {
			return s, false
		}
		s.UserID = uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return s, false
		}
		s.UserID = n
	default:
		return s, false
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return s, false
	}
	s.Role = strings.ToUpper(role)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}
	return s, true
}

// SessionFrom returns the session stored by JWTAuth.
func SessionFrom(c echo.Context) (booking.Session, bool) {
	s, ok := c.Get(sessionKey).(booking.Session)
	return s, ok
}
