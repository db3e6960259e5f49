package models

import "time"

// UserType is the marketplace cohort a user belongs to.
type UserType string

const (
	UserTypeBuyer  UserType = "buyer"
	UserTypeSeller UserType = "seller"
)

// Valid reports whether t is a known cohort.
func (t UserType) Valid() bool {
	return t == UserTypeBuyer || t == UserTypeSeller
}

// User is the read model of the user directory, owned by the main application.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"` // Canonical identity, e.g. +9647700227210
	Email     string    `json:"email" db:"email"`
	UserType  UserType  `json:"userType" db:"user_type"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// UserResponse is what we send to clients about a counterpart
type UserResponse struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	UserType UserType `json:"userType"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Phone:    u.Phone,
		UserType: u.UserType,
	}
}
