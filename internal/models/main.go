// Package models defines the core data structures for users and issues.
package models

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the display name chosen by the user.
	Username string `json:"username"`
	// Email is the login identifier of the user.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the user's password. It never
	// leaves the server.
	PasswordHash []byte `json:"-"`
}

// AuthResponse is the body returned by register and login.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
