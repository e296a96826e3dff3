package auth

// Role is the coarse permission level of a user.
type Role string

const (
	RoleGuest Role = "guest"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authorization capability of the caller, resolved once per
// request and passed explicitly to services.
type Actor struct {
	UserID string
	Role   Role
}

// IsStaff is true for front-desk staff and admins.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the registered user userID.
func (a Actor) Owns(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}
