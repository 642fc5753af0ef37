package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"technovit/pkg/domain"
)

// Mutable field names as stored and as accepted in patch bodies.
const (
	FieldIsPinned          = "isPinned"
	FieldIsHidden          = "isHidden"
	FieldRegistrationsOpen = "registrationsOpen"
	FieldName              = "name"
	FieldDescription       = "description"
	FieldVenue             = "venue"
	FieldStartDate         = "startDate"
	FieldStartTime         = "startTime"
	FieldEndDate           = "endDate"
	FieldEndTime           = "endTime"
	FieldFee               = "fee"
	FieldGroupSizeMin      = "groupSizeMin"
	FieldGroupSizeMax      = "groupSizeMax"
)

// Coordinator is a user reference embedded in an event's coordinator lists.
type Coordinator struct {
	ID    domain.UserID `bson:"_id" json:"_id"`
	Name  string        `bson:"name,omitempty" json:"name,omitempty"`
	Email string        `bson:"email,omitempty" json:"email,omitempty"`
	Phone string        `bson:"phone,omitempty" json:"phone,omitempty"`
}

type Event struct {
	ID                  domain.EventID     `bson:"_id" json:"_id"`
	Name                string             `bson:"name" json:"name"`
	Description         string             `bson:"description,omitempty" json:"description,omitempty"`
	Venue               string             `bson:"venue,omitempty" json:"venue,omitempty"`
	StartDate           *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	StartTime           string             `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndDate             *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	EndTime             string             `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Fee                 float64            `bson:"fee" json:"fee"`
	FeePerPerson        *float64           `bson:"feePerPerson,omitempty" json:"feePerPerson,omitempty"`
	FeeStructure        map[string]float64 `bson:"feeStructure,omitempty" json:"feeStructure,omitempty"`
	GroupSizeMin        int                `bson:"groupSizeMin" json:"groupSizeMin"`
	GroupSizeMax        int                `bson:"groupSizeMax" json:"groupSizeMax"`
	StudentCoordinators []Coordinator      `bson:"studentCoordinators" json:"studentCoordinators"`
	FacultyCoordinators []Coordinator      `bson:"facultyCoordinators" json:"facultyCoordinators"`
	RegistrationsOpen   bool               `bson:"registrationsOpen" json:"registrationsOpen"`
	IsHidden            bool               `bson:"isHidden" json:"isHidden"`
	IsPinned            bool               `bson:"isPinned" json:"isPinned"`
}

type storedEvent Event

// UnmarshalBSON fills the defaults older documents rely on when a key is
// missing or null: registrations open, and teams of one.
func (e *Event) UnmarshalBSON(data []byte) error {
	if err := bson.Unmarshal(data, (*storedEvent)(e)); err != nil {
		return err
	}
	raw := bson.Raw(data)
	if absent(raw, FieldRegistrationsOpen) {
		e.RegistrationsOpen = true
	}
	if absent(raw, FieldGroupSizeMin) {
		e.GroupSizeMin = 1
	}
	if absent(raw, FieldGroupSizeMax) {
		e.GroupSizeMax = max(e.GroupSizeMin, 1)
	}
	return nil
}

func absent(raw bson.Raw, key string) bool {
	v, err := raw.LookupErr(key)
	return err != nil || v.Type == bsontype.Null || v.Type == bsontype.Undefined
}

// IsFree reports whether registrations are settled without payment.
// Only the flat fee is consulted.
func (e *Event) IsFree() bool {
	return e.Fee == 0
}

// HasCoordinator reports whether userID is listed as a student or faculty coordinator.
func (e *Event) HasCoordinator(userID domain.UserID) bool {
	for _, c := range e.StudentCoordinators {
		if c.ID == userID {
			return true
		}
	}
	for _, c := range e.FacultyCoordinators {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// Summary is the projection embedded when a registration's event reference is populated.
type Summary struct {
	ID           domain.EventID `json:"_id"`
	Name         string         `json:"name"`
	Fee          float64        `json:"fee"`
	FeePerPerson *float64       `json:"feePerPerson,omitempty"`
	GroupSizeMin int            `json:"groupSizeMin"`
	GroupSizeMax int            `json:"groupSizeMax"`
	StartDate    *time.Time     `json:"startDate,omitempty"`
}

func (e *Event) Summary() Summary {
	return Summary{
		ID:           e.ID,
		Name:         e.Name,
		Fee:          e.Fee,
		FeePerPerson: e.FeePerPerson,
		GroupSizeMin: e.GroupSizeMin,
		GroupSizeMax: e.GroupSizeMax,
		StartDate:    e.StartDate,
	}
}

// Update is a validated set of field assignments applied atomically.
// Keys are field names, values are already converted to their stored types.
type Update map[string]any

// Fields returns the field names in the update in a stable order.
func (u Update) Fields() []string {
	out := make([]string, 0, len(u))
	for _, f := range AllFields {
		if _, ok := u[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// AllFields lists every field a patch may ever touch.
var AllFields = []string{
	FieldIsPinned, FieldIsHidden, FieldRegistrationsOpen, FieldName, FieldDescription,
	FieldVenue, FieldStartDate, FieldStartTime, FieldEndDate, FieldEndTime,
	FieldFee, FieldGroupSizeMin, FieldGroupSizeMax,
}

// Apply copies the update onto a clone of e; stores use it to keep in-memory
// state consistent with what a $set would produce.
func (e *Event) Apply(u Update) *Event {
	out := e.Clone()
	for field, v := range u {
		switch field {
		case FieldIsPinned:
			out.IsPinned = v.(bool)
		case FieldIsHidden:
			out.IsHidden = v.(bool)
		case FieldRegistrationsOpen:
			out.RegistrationsOpen = v.(bool)
		case FieldName:
			out.Name = v.(string)
		case FieldDescription:
			out.Description = v.(string)
		case FieldVenue:
			out.Venue = v.(string)
		case FieldStartDate:
			out.StartDate = v.(*time.Time)
		case FieldStartTime:
			out.StartTime = v.(string)
		case FieldEndDate:
			out.EndDate = v.(*time.Time)
		case FieldEndTime:
			out.EndTime = v.(string)
		case FieldFee:
			out.Fee = v.(float64)
		case FieldGroupSizeMin:
			out.GroupSizeMin = v.(int)
		case FieldGroupSizeMax:
			out.GroupSizeMax = v.(int)
		}
	}
	return out
}

// Clone deep-copies the slices and maps so callers cannot alias store state.
func (e *Event) Clone() *Event {
	c := *e
	c.StudentCoordinators = append([]Coordinator(nil), e.StudentCoordinators...)
	c.FacultyCoordinators = append([]Coordinator(nil), e.FacultyCoordinators...)
	if e.FeeStructure != nil {
		c.FeeStructure = make(map[string]float64, len(e.FeeStructure))
		for k, v := range e.FeeStructure {
			c.FeeStructure[k] = v
		}
	}
	return &c
}
