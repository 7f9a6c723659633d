package handler

import "github.com/identitylab/user-access-api/internal/core/domain"

// messageResponse is the standard envelope for confirmation messages.
type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type authenticateRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Username  string `json:"username"  validate:"required"`
	Password  string `json:"password"  validate:"required"`
	Role      string `json:"role"      validate:"required,oneof=Admin User"`
}

// updateRequest mirrors registerRequest, but the password is optional: an
// empty value leaves the stored hash unchanged.
type updateRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Username  string `json:"username"  validate:"required"`
	Password  string `json:"password"  validate:"omitempty"`
	Role      string `json:"role"      validate:"required,oneof=Admin User"`
}

// --- Response types ---

// userResponse is the outward user shape. It deliberately has no field for
// the password hash, so the transport contract cannot leak it.
type userResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

type authenticateResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Token     string `json:"token"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Role:      string(u.Role),
	}
}
