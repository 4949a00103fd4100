package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values stored in the `role` field of a user document.  Admin
// accounts cannot be self-registered; they are provisioned out of band.
const (
	RoleUser    = "user"
	RoleCompany = "company"
	RoleAdmin   = "admin"
)

// ValidRole reports whether s is one of the fixed role values.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleCompany || s == RoleAdmin
}

// User represents a document in the `users` collection.  Email and
// number are unique across the collection (enforced by indexes created
// at startup).  Password holds only the bcrypt digest.  RefreshToken
// holds the single currently-valid refresh token for the user, or nil:
// overwriting it invalidates every previously issued refresh token.
// ResetToken/ResetTokenExpiry form a nullable pair set by the
// forgot-password flow and cleared when the token is consumed.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	Number           string             `bson:"number"`
	DateOfBirth      *string            `bson:"date_of_birth,omitempty"`
	Address          string             `bson:"address"`
	City             string             `bson:"city"`
	Zip              string             `bson:"zip"`
	Password         string             `bson:"password"`
	Role             string             `bson:"role"`
	RefreshToken     *string            `bson:"refresh_token,omitempty"`
	ResetToken       *string            `bson:"reset_token,omitempty"`
	ResetTokenExpiry *time.Time         `bson:"reset_token_expiry,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

// Profile is the sanitized view of a user returned by profile
// endpoints.  Credential and token fields are never included.
type Profile struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Number      string  `json:"number"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Role        string  `json:"role"`
}

// PublicProfile builds the sanitized view for u.
func PublicProfile(u *User) Profile {
	return Profile{
		Name:        u.Name,
		Email:       u.Email,
		Number:      u.Number,
		DateOfBirth: u.DateOfBirth,
		Address:     u.Address,
		City:        u.City,
		Zip:         u.Zip,
		Role:        u.Role,
	}
}
