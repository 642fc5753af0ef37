package audit

import (
	"context"
	"time"

	"technovit/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores and
// sinks can route them with different retention.
type EventCategory string

const (
	// CategoryCompliance covers money movement and destruction of registrations.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers denied privileged actions.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    domain.UserID `json:"userId,omitempty"`
	Subject   string        `json:"subject"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
	ClientIP  string        `json:"clientIp,omitempty"`
	Device    string        `json:"device,omitempty"`
}

type AuditEvent string

const (
	// Registration lifecycle
	EventRegistrationCreated AuditEvent = "registration_created"
	EventRegistrationDeleted AuditEvent = "registration_deleted"
	EventMemberWithdrew      AuditEvent = "member_withdrew"
	EventInvitationResponded AuditEvent = "invitation_responded"
	EventPaymentConfirmed    AuditEvent = "payment_confirmed"

	// Event administration
	EventEventPatched    AuditEvent = "event_patched"
	EventPatchDenied     AuditEvent = "event_patch_denied"
	EventPinDenied       AuditEvent = "event_pin_denied"
	EventAnalyticsDenied AuditEvent = "analytics_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPaymentConfirmed:    CategoryCompliance,
	EventRegistrationDeleted: CategoryCompliance,

	EventPatchDenied:     CategorySecurity,
	EventPinDenied:       CategorySecurity,
	EventAnalyticsDenied: CategorySecurity,

	EventRegistrationCreated: CategoryOperations,
	EventMemberWithdrew:      CategoryOperations,
	EventInvitationResponded: CategoryOperations,
	EventEventPatched:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
