// Package users implements the user directory: the filtered listing endpoint
// and the profile routes for the authenticated user.
// This file defines the record types rows are mapped into.
package users

import "time"

// User is one row of the listing. The field set mirrors the fixed column
// list the listing selects (never SELECT *): id, username, email.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile is the fuller record returned by the /users/me routes.
type Profile struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
