package core

// User is the authenticated shopper or admin making a request.
// Identity is resolved outside this core; a nil *User means nobody is signed in.
type User struct {
	ID    int64
	Email string
	Role  string
}

// IsAdmin reports whether the user may run maintenance operations such as recalculation.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
