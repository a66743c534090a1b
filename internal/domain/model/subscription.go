package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusNone    SubscriptionStatus = "none"
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// SubscriptionState is the per-user subscription snapshot.
// ExpiresAt is meaningful only for active/expired; PendingInvoiceID only for
// pending.
type SubscriptionState struct {
	Status           SubscriptionStatus
	ExpiresAt        *time.Time
	PendingInvoiceID string
}

// IsSubscribed evaluates "currently subscribed" lazily: expiry is never
// required to be written back before a read observes it.
func (s SubscriptionState) IsSubscribed(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt != nil && now.Before(*s.ExpiresAt)
}

// Effective returns the status as a reader should see it, folding an
// overdue active subscription into expired.
func (s SubscriptionState) Effective(now time.Time) SubscriptionStatus {
	if s.Status == SubscriptionStatusActive && (s.ExpiresAt == nil || !now.Before(*s.ExpiresAt)) {
		return SubscriptionStatusExpired
	}
	return s.Status
}
