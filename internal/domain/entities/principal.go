package entities

// Principal is the authenticated caller, as established from a session token
type Principal struct {
	UserID string
	Role   Role
	Email  string
}

// Is reports whether the principal acts as userID
func (p *Principal) Is(userID string) bool {
	return p != nil && p.UserID == userID
}
