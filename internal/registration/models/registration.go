package models

import (
	"time"

	"technovit/pkg/domain"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// FreePaymentID marks registrations on zero-fee events as settled.
const FreePaymentID = "FREE"

// Invitation is a team member's membership record inside a registration.
// Token and TokenExpires are only set for deferred (emailed) invites.
type Invitation struct {
	UserID       domain.UserID    `bson:"userId" json:"userId"`
	Status       InvitationStatus `bson:"status" json:"status"`
	Token        string           `bson:"token,omitempty" json:"-"`
	TokenExpires *time.Time       `bson:"tokenExpires,omitempty" json:"tokenExpires,omitempty"`
}

// Expired reports whether a deferred invite can no longer be answered at now.
func (i Invitation) Expired(now time.Time) bool {
	return i.TokenExpires != nil && !now.Before(*i.TokenExpires)
}

// Registration is one team's entry for an event. TeamMembers and the
// invitation user ids always describe the same set, creator first.
type Registration struct {
	ID               domain.RegistrationID `bson:"_id" json:"_id"`
	Event            domain.EventID        `bson:"event" json:"event"`
	Creator          domain.UserID         `bson:"creator" json:"creator"`
	TeamMembers      []domain.UserID       `bson:"teamMembers" json:"teamMembers"`
	InvitationStatus []Invitation          `bson:"invitationStatus" json:"invitationStatus"`
	PaymentStatus    PaymentStatus         `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID        *string               `bson:"paymentId" json:"paymentId"`
	CreatedAt        time.Time             `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

func (r *Registration) IsCreator(userID domain.UserID) bool {
	return r.Creator == userID
}

// IsMember reports whether userID is on the team or holds an invitation.
func (r *Registration) IsMember(userID domain.UserID) bool {
	for _, m := range r.TeamMembers {
		if m == userID {
			return true
		}
	}
	for _, inv := range r.InvitationStatus {
		if inv.UserID == userID {
			return true
		}
	}
	return false
}

// Involves reports whether the registration is visible to userID as a participant.
func (r *Registration) Involves(userID domain.UserID) bool {
	return r.IsCreator(userID) || r.IsMember(userID)
}

// WithoutMember returns a copy with userID pulled from both member lists.
func (r *Registration) WithoutMember(userID domain.UserID) *Registration {
	out := r.Clone()
	out.TeamMembers = out.TeamMembers[:0]
	for _, m := range r.TeamMembers {
		if m != userID {
			out.TeamMembers = append(out.TeamMembers, m)
		}
	}
	out.InvitationStatus = out.InvitationStatus[:0]
	for _, inv := range r.InvitationStatus {
		if inv.UserID != userID {
			out.InvitationStatus = append(out.InvitationStatus, inv)
		}
	}
	return out
}

func (r *Registration) Clone() *Registration {
	c := *r
	c.TeamMembers = append([]domain.UserID(nil), r.TeamMembers...)
	c.InvitationStatus = append([]Invitation(nil), r.InvitationStatus...)
	if r.PaymentID != nil {
		id := *r.PaymentID
		c.PaymentID = &id
	}
	return &c
}
