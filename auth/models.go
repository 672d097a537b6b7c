// Package auth, account model.
package auth

import "time"

// User represents an account row as the auth module sees it, including the
// stored credential hash. The json:"-" tag keeps the hash out of any
// serialized response.
type User struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
