package domain

import "errors"

// Role is the coarse permission class attached to a user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

var ErrInvalidCredentials = errors.New("username or password is incorrect")
var ErrUserNotFound = errors.New("user not found")
var ErrUsernameTaken = errors.New("username is already taken")
var ErrInvalidRole = errors.New("invalid role")
var ErrUnauthorized = errors.New("unauthorized")
var ErrPersistence = errors.New("persistence failure")

var ErrTokenMissing = errors.New("missing token")
var ErrTokenExpired = errors.New("token expired")
var ErrTokenInvalid = errors.New("invalid token")

// User models an authenticated actor in the system. The store assigns ID on
// first commit; it is immutable afterwards. PasswordHash never leaves the
// process boundary.
type User struct {
	ID           int    `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}
