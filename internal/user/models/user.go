package models

import (
	"strings"
	"time"

	"technovit/pkg/domain"
)

// User is an account holder. Registrations reference users by ID only.
type User struct {
	ID                 domain.UserID `bson:"_id" json:"_id"`
	Name               string        `bson:"name" json:"name"`
	Email              string        `bson:"email" json:"email"`
	Role               domain.Role   `bson:"role" json:"role"`
	IsVITian           bool          `bson:"isVITian" json:"isVITian"`
	RegistrationNumber string        `bson:"registrationNumber,omitempty" json:"registrationNumber,omitempty"`
	PhoneNumber        string        `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	CollegeName        string        `bson:"collegeName,omitempty" json:"collegeName,omitempty"`
	PasswordHash       string        `bson:"password,omitempty" json:"-"`
	CreatedAt          time.Time     `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Summary is the projection embedded when a reference to a user is populated.
type Summary struct {
	ID    domain.UserID `json:"_id"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
}

// Summary projects the user for populated views.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
