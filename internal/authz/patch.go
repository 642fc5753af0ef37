package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"technovit/internal/event/models"
	dErrors "technovit/pkg/domain-errors"
)

// BuildUpdate intersects the requested fields with the allowance and decodes
// each kept value into its stored type. Disallowed fields are dropped silently,
// except the pin flag, which fails the whole patch. The resulting event must
// still satisfy the fee and group-size invariants.
func BuildUpdate(ev *models.Event, requested map[string]json.RawMessage, allowed FieldSet) (models.Update, error) {
	if _, wantsPin := requested[models.FieldIsPinned]; wantsPin && !allowed.Has(models.FieldIsPinned) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to pin events")
	}

	update := make(models.Update)
	for _, field := range models.AllFields {
		raw, ok := requested[field]
		if !ok || !allowed.Has(field) {
			continue
		}
		v, err := decodeField(field, raw)
		if err != nil {
			return nil, err
		}
		update[field] = v
	}
	if len(update) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no valid updates provided")
	}

	if fee, ok := update[models.FieldFee].(float64); ok && fee < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "fee must not be negative")
	}
	next := ev.Apply(update)
	if next.GroupSizeMin < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "groupSizeMin must be at least 1")
	}
	if next.GroupSizeMin > next.GroupSizeMax {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"groupSizeMin (%d) must not exceed groupSizeMax (%d)", next.GroupSizeMin, next.GroupSizeMax)
	}
	return update, nil
}

// decodeField converts one patch value. Only the dates may be null; a null
// anywhere else would silently write the zero value.
func decodeField(field string, raw json.RawMessage) (any, error) {
	isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	switch field {
	case models.FieldIsPinned, models.FieldIsHidden, models.FieldRegistrationsOpen:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil || isNull {
			return nil, typeError(field, "a boolean")
		}
		return b, nil
	case models.FieldName:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || isNull {
			return nil, typeError(field, "a string")
		}
		if strings.TrimSpace(s) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "name must not be empty")
		}
		return s, nil
	case models.FieldDescription, models.FieldVenue, models.FieldStartTime, models.FieldEndTime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || isNull {
			return nil, typeError(field, "a string")
		}
		return s, nil
	case models.FieldStartDate, models.FieldEndDate:
		return decodeDate(field, raw)
	case models.FieldFee:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || isNull {
			return nil, typeError(field, "a number")
		}
		return f, nil
	case models.FieldGroupSizeMin, models.FieldGroupSizeMax:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil || isNull {
			return nil, typeError(field, "an integer")
		}
		return n, nil
	}
	return nil, dErrors.Newf(dErrors.CodeValidation, "field %s is not patchable", field)
}

// decodeDate accepts null (clears the date), RFC 3339 timestamps and bare dates.
func decodeDate(field string, raw json.RawMessage) (*time.Time, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, typeError(field, "a date string")
	}
	if s == nil {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, typeError(field, "a date string")
}

func typeError(field, want string) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be %s", field, want))
}
