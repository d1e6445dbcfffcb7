package domain

// Role is the closed set of club roles. Designations ("President", "Lead
// Dev") are free text on the membership and must never leak into this set.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// ParseRole validates a wire-level role string against the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleMember:
		return Role(s), true
	}
	return "", false
}

func (r Role) String() string { return string(r) }

// In reports whether r is one of the allowed roles.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
