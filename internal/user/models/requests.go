package models

// RegisterRequest opens a student account. Elevated roles are granted out of band.
type RegisterRequest struct {
	Name               string `json:"name" validate:"max=120"`
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required,min=8,max=72"`
	IsVITian           bool   `json:"isVITian"`
	RegistrationNumber string `json:"registrationNumber" validate:"max=32"`
	PhoneNumber        string `json:"phoneNumber" validate:"max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token     string  `json:"token"`
	ExpiresIn int64   `json:"expiresIn"`
	User      Summary `json:"user"`
	Role      string  `json:"role"`
}
