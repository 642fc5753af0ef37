// Package domain holds the identity reference types shared across the service.
//
// Every reference to a user, event or registration is a typed wrapper around the
// store's native ObjectID. The wrappers decode from either a native ObjectID or its
// hex string form, and always encode as a native ObjectID, so documents written by
// older clients are normalised at the store boundary and queries never need to
// match both representations.
package domain

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	dErrors "technovit/pkg/domain-errors"
)

type (
	UserID         primitive.ObjectID
	EventID        primitive.ObjectID
	RegistrationID primitive.ObjectID
)

func NewUserID() UserID                 { return UserID(primitive.NewObjectID()) }
func NewEventID() EventID               { return EventID(primitive.NewObjectID()) }
func NewRegistrationID() RegistrationID { return RegistrationID(primitive.NewObjectID()) }

// ParseUserID parses a hex identity reference. Empty, malformed and all-zero
// values are rejected with CodeInvalidInput.
func ParseUserID(s string) (UserID, error) {
	oid, err := parseObjectID("user", s)
	return UserID(oid), err
}

func ParseEventID(s string) (EventID, error) {
	oid, err := parseObjectID("event", s)
	return EventID(oid), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	oid, err := parseObjectID("registration", s)
	return RegistrationID(oid), err
}

func parseObjectID(kind, s string) (primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID, dErrors.Newf(dErrors.CodeInvalidInput, "%s ID required", kind)
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s ID", kind)
	}
	if oid.IsZero() {
		return primitive.NilObjectID, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s ID", kind)
	}
	return oid, nil
}

// decodeReference accepts both stored representations of an identity reference.
// A string that is not ObjectID hex decodes to the nil ID, so one dangling
// reference degrades to an unresolvable member instead of failing the document.
func decodeReference(t bsontype.Type, data []byte) (primitive.ObjectID, error) {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		return raw.ObjectID(), nil
	case bsontype.String:
		oid, err := primitive.ObjectIDFromHex(raw.StringValue())
		if err != nil {
			return primitive.NilObjectID, nil
		}
		return oid, nil
	case bsontype.Null, bsontype.Undefined:
		return primitive.NilObjectID, nil
	default:
		return primitive.NilObjectID, fmt.Errorf("decode identity reference: unsupported bson type %s", t)
	}
}

func encodeText(oid primitive.ObjectID) []byte {
	if oid.IsZero() {
		return []byte{}
	}
	return []byte(oid.Hex())
}

func decodeText(b []byte) (primitive.ObjectID, error) {
	if len(b) == 0 {
		return primitive.NilObjectID, nil
	}
	return primitive.ObjectIDFromHex(string(b))
}

// -----------------------------------------------------------------------------
// UserID
// -----------------------------------------------------------------------------

// ResolvableUserIDs drops nil references, which stand for stored values that
// could not be decoded.
func ResolvableUserIDs(ids []UserID) []UserID {
	out := make([]UserID, 0, len(ids))
	for _, id := range ids {
		if !id.IsNil() {
			out = append(out, id)
		}
	}
	return out
}

func (id UserID) String() string { return primitive.ObjectID(id).Hex() }
func (id UserID) IsNil() bool    { return primitive.ObjectID(id).IsZero() }
func (id UserID) IsZero() bool   { return id.IsNil() }

func (id UserID) MarshalText() ([]byte, error) { return encodeText(primitive.ObjectID(id)), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	oid, err := decodeText(b)
	if err != nil {
		return err
	}
	*id = UserID(oid)
	return nil
}

func (id UserID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.ObjectID(id))
}

func (id *UserID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	oid, err := decodeReference(t, data)
	if err != nil {
		return err
	}
	*id = UserID(oid)
	return nil
}

// -----------------------------------------------------------------------------
// EventID
// -----------------------------------------------------------------------------

func (id EventID) String() string { return primitive.ObjectID(id).Hex() }
func (id EventID) IsNil() bool    { return primitive.ObjectID(id).IsZero() }
func (id EventID) IsZero() bool   { return id.IsNil() }

func (id EventID) MarshalText() ([]byte, error) { return encodeText(primitive.ObjectID(id)), nil }

func (id *EventID) UnmarshalText(b []byte) error {
	oid, err := decodeText(b)
	if err != nil {
		return err
	}
	*id = EventID(oid)
	return nil
}

func (id EventID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.ObjectID(id))
}

func (id *EventID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	oid, err := decodeReference(t, data)
	if err != nil {
		return err
	}
	*id = EventID(oid)
	return nil
}

// -----------------------------------------------------------------------------
// RegistrationID
// -----------------------------------------------------------------------------

func (id RegistrationID) String() string { return primitive.ObjectID(id).Hex() }
func (id RegistrationID) IsNil() bool    { return primitive.ObjectID(id).IsZero() }
func (id RegistrationID) IsZero() bool   { return id.IsNil() }

func (id RegistrationID) MarshalText() ([]byte, error) {
	return encodeText(primitive.ObjectID(id)), nil
}

func (id *RegistrationID) UnmarshalText(b []byte) error {
	oid, err := decodeText(b)
	if err != nil {
		return err
	}
	*id = RegistrationID(oid)
	return nil
}

func (id RegistrationID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.ObjectID(id))
}

func (id *RegistrationID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	oid, err := decodeReference(t, data)
	if err != nil {
		return err
	}
	*id = RegistrationID(oid)
	return nil
}
