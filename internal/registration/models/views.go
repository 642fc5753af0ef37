package models

import (
	"encoding/json"
	"time"

	eventmodels "technovit/internal/event/models"
	usermodels "technovit/internal/user/models"
	"technovit/pkg/domain"
)

// EventRef renders as the event summary when populated, else as the bare id.
type EventRef struct {
	ID      domain.EventID
	Summary *eventmodels.Summary
}

func (r EventRef) MarshalJSON() ([]byte, error) {
	if r.Summary != nil {
		return json.Marshal(r.Summary)
	}
	return json.Marshal(r.ID)
}

// UserRef renders as {_id, name, email} when populated, else as the bare id.
type UserRef struct {
	ID      domain.UserID
	Summary *usermodels.Summary
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.Summary != nil {
		return json.Marshal(r.Summary)
	}
	return json.Marshal(r.ID)
}

type InvitationView struct {
	UserID       UserRef          `json:"userId"`
	Status       InvitationStatus `json:"status"`
	TokenExpires *time.Time       `json:"tokenExpires,omitempty"`
}

// View is a registration with its references expanded where they resolved.
type View struct {
	ID               domain.RegistrationID `json:"_id"`
	Event            EventRef              `json:"event"`
	Creator          UserRef               `json:"creator"`
	TeamMembers      []UserRef             `json:"teamMembers"`
	InvitationStatus []InvitationView      `json:"invitationStatus"`
	PaymentStatus    PaymentStatus         `json:"paymentStatus"`
	PaymentID        *string               `json:"paymentId"`
	CreatedAt        time.Time             `json:"createdAt,omitempty"`
}

// Populate builds the view from lookup tables. Missing entries stay unexpanded.
func Populate(reg *Registration, events map[domain.EventID]*eventmodels.Event, users map[domain.UserID]*usermodels.User) *View {
	v := &View{
		ID:               reg.ID,
		Event:            EventRef{ID: reg.Event},
		Creator:          userRef(reg.Creator, users),
		TeamMembers:      make([]UserRef, 0, len(reg.TeamMembers)),
		InvitationStatus: make([]InvitationView, 0, len(reg.InvitationStatus)),
		PaymentStatus:    reg.PaymentStatus,
		PaymentID:        reg.PaymentID,
		CreatedAt:        reg.CreatedAt,
	}
	if ev, ok := events[reg.Event]; ok {
		s := ev.Summary()
		v.Event.Summary = &s
	}
	for _, m := range reg.TeamMembers {
		v.TeamMembers = append(v.TeamMembers, userRef(m, users))
	}
	for _, inv := range reg.InvitationStatus {
		v.InvitationStatus = append(v.InvitationStatus, InvitationView{
			UserID:       userRef(inv.UserID, users),
			Status:       inv.Status,
			TokenExpires: inv.TokenExpires,
		})
	}
	return v
}

func userRef(id domain.UserID, users map[domain.UserID]*usermodels.User) UserRef {
	ref := UserRef{ID: id}
	if u, ok := users[id]; ok {
		s := u.Summary()
		ref.Summary = &s
	}
	return ref
}
