package auth

// Role is a staff member's permission level. Requesters have no account and no role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePastor Role = "pastor"
	RoleStaff  Role = "staff"
)

// Valid reports whether r is one of the known staff roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePastor, RoleStaff:
		return true
	}
	return false
}

// In reports whether r is any of roles.
func (r Role) In(roles ...Role) bool {
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Role   Role
}

// Authenticated reports whether p came from a verified token.
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.Role.Valid()
}
