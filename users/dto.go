// Package users, request/response shapes for the profile routes.
// The listing endpoint serializes []User directly; see models.go.
package users

// UpdateProfileRequest is the body of PUT /users/me. Fields are pointers so
// a partial update only touches what the client actually sent.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}
