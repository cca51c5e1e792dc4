package middleware

import "github.com/labstack/echo/v4"

// userID returns the caller's id as text for cache and rate limit keys,
// or "anon" for unauthenticated requests.
func userID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
