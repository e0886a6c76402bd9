package model

// Identity is the authenticated caller resolved from the bearer token.
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsZero() bool {
	return i.UserID <= 0 || i.Role == ""
}
