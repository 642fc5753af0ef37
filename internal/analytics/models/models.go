package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"technovit/pkg/domain"
)

// Scope is the set of events a caller may aggregate over.
type Scope struct {
	Unrestricted bool
	EventIDs     []domain.EventID
}

// Filter returns nil for an unrestricted scope and the (possibly empty)
// event id list otherwise.
func (s Scope) Filter() []domain.EventID {
	if s.Unrestricted {
		return nil
	}
	if s.EventIDs == nil {
		return []domain.EventID{}
	}
	return s.EventIDs
}

// Key identifies the scope for caching. Scopes covering the same events share a key.
func (s Scope) Key() string {
	if s.Unrestricted {
		return "all"
	}
	ids := make([]string, len(s.EventIDs))
	for i, id := range s.EventIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{','})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Stats are the dashboard totals. Revenue counts each paid registration's
// flat event fee once, whatever the team size.
type Stats struct {
	TotalRevenue       float64 `json:"totalRevenue"`
	TotalRegistrations int     `json:"totalRegistrations"`
	PaidCount          int     `json:"paidCount"`
	UnpaidCount        int     `json:"unpaidCount"`
}

// EventSummary is one row of the per-event breakdown.
type EventSummary struct {
	ID              domain.EventID `json:"_id"`
	Name            string         `json:"name"`
	Registered      int            `json:"registered"`
	Paid            int            `json:"paid"`
	Unpaid          int            `json:"unpaid"`
	AmountCollected float64        `json:"amountCollected"`
	Vitians         int            `json:"vitians"`
	NonVitians      int            `json:"nonVitians"`
}

// ParticipantRow is one team member of one registration.
type ParticipantRow struct {
	RegistrationID domain.RegistrationID `json:"registrationId"`
	PaymentStatus  string                `json:"paymentStatus"`
	UserID         domain.UserID         `json:"userId"`
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	RegNo          string                `json:"regNo"`
	Phone          string                `json:"phone"`
	IsVITian       bool                  `json:"isVITian"`
}

// EventRef names the event a participant listing belongs to.
type EventRef struct {
	ID   domain.EventID `json:"_id"`
	Name string         `json:"name"`
}

type Participants struct {
	Event EventRef
	Rows  []ParticipantRow
}
