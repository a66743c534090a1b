package model

import (
	"time"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
)

// User is a domain entity keyed by the Telegram-assigned user id.
// The credit balance and subscription fields are authoritative in the store;
// in-memory copies are snapshots only.
type User struct {
	TelegramID    int64
	FirstName     string
	LastName      string
	Username      string
	CreditBalance int64
	Subscription  SubscriptionState
	RegisteredAt  time.Time
	LastActiveAt  time.Time
}

// Names carries the optional profile fields refreshed on each contact.
type Names struct {
	FirstName string
	LastName  string
	Username  string
}

func NewUser(tgID int64, names Names) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		TelegramID:   tgID,
		FirstName:    names.FirstName,
		LastName:     names.LastName,
		Username:     names.Username,
		Subscription: SubscriptionState{Status: SubscriptionStatusNone},
		RegisteredAt: now,
		LastActiveAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.TelegramID == 0 }
