package models

// CreateRequest is the body of POST /registrations.
type CreateRequest struct {
	Event      string   `json:"event" validate:"required,objectid"`
	TeamEmails []string `json:"teamEmails" validate:"max=16,dive,email"`
}

// Respond actions.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// RespondRequest is the body of POST /registrations/accept.
type RespondRequest struct {
	RegistrationID string `json:"registrationId" validate:"required,objectid"`
	Action         string `json:"action" validate:"required,oneof=accept decline"`
}

// PaymentRequest is the body of POST /registrations/{id}/payment.
type PaymentRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
}
