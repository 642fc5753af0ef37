package models

import (
	"strings"
	"time"

	"technovit/pkg/domain"
)

// CoordinatorRequest names a coordinator by user id in create payloads.
type CoordinatorRequest struct {
	ID    string `json:"_id" validate:"required,objectid"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Name                string               `json:"name" validate:"required"`
	Description         string               `json:"description"`
	Venue               string               `json:"venue"`
	StartDate           *time.Time           `json:"startDate"`
	StartTime           string               `json:"startTime"`
	EndDate             *time.Time           `json:"endDate"`
	EndTime             string               `json:"endTime"`
	Fee                 float64              `json:"fee" validate:"gte=0"`
	FeePerPerson        *float64             `json:"feePerPerson" validate:"omitempty,gte=0"`
	FeeStructure        map[string]float64   `json:"feeStructure"`
	GroupSizeMin        int                  `json:"groupSizeMin" validate:"gte=1"`
	GroupSizeMax        int                  `json:"groupSizeMax" validate:"gtefield=GroupSizeMin"`
	StudentCoordinators []CoordinatorRequest `json:"studentCoordinators" validate:"dive"`
	FacultyCoordinators []CoordinatorRequest `json:"facultyCoordinators" validate:"dive"`
	RegistrationsOpen   *bool                `json:"registrationsOpen"`
	IsHidden            bool                 `json:"isHidden"`
	IsPinned            bool                 `json:"isPinned"`
}

// Normalize fills defaults: single-person teams and open registrations.
func (r *CreateEventRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.GroupSizeMin == 0 {
		r.GroupSizeMin = 1
	}
	if r.GroupSizeMax == 0 {
		r.GroupSizeMax = r.GroupSizeMin
	}
}

// ToEvent builds the stored event. Coordinator ids must already be validated.
func (r *CreateEventRequest) ToEvent(id domain.EventID) *Event {
	open := true
	if r.RegistrationsOpen != nil {
		open = *r.RegistrationsOpen
	}
	return &Event{
		ID:                  id,
		Name:                r.Name,
		Description:         r.Description,
		Venue:               r.Venue,
		StartDate:           r.StartDate,
		StartTime:           r.StartTime,
		EndDate:             r.EndDate,
		EndTime:             r.EndTime,
		Fee:                 r.Fee,
		FeePerPerson:        r.FeePerPerson,
		FeeStructure:        r.FeeStructure,
		GroupSizeMin:        r.GroupSizeMin,
		GroupSizeMax:        r.GroupSizeMax,
		StudentCoordinators: toCoordinators(r.StudentCoordinators),
		FacultyCoordinators: toCoordinators(r.FacultyCoordinators),
		RegistrationsOpen:   open,
		IsHidden:            r.IsHidden,
		IsPinned:            r.IsPinned,
	}
}

func toCoordinators(in []CoordinatorRequest) []Coordinator {
	out := make([]Coordinator, 0, len(in))
	for _, c := range in {
		id, err := domain.ParseUserID(c.ID)
		if err != nil {
			continue
		}
		out = append(out, Coordinator{ID: id, Name: c.Name, Email: c.Email, Phone: c.Phone})
	}
	return out
}
