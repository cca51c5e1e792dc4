package booking

import "time"

// Roles carried in the access token.
const (
	RoleCustomer = "CUSTOMER"
	RoleSeller   = "SELLER"
	RoleAdmin    = "ADMIN"
)

// Session is the authenticated caller of a manager operation. It is built
// per request from the access token (issued at login, gone once it expires)
// and passed explicitly; nothing in the manager reads ambient state.
type Session struct {
	UserID    uint64
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid returns ErrUnauthenticated for an anonymous or expired session.
// A zero ExpiresAt means the session does not expire.
func (s Session) Valid(now time.Time) error {
	if s.UserID == 0 || s.Role == "" {
		return ErrUnauthenticated
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return ErrUnauthenticated
	}
	return nil
}

// Is reports whether the session has one of the roles.
func (s Session) Is(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
