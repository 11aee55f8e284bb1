package domain

import "time"

// Event is a domain event emitted after a state change commits. Delivery is
// in-process and best effort.
type Event interface {
	EventName() string
}

const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserDeleted    = "user.deleted"
)

type UserRegistered struct {
	UserID     string
	Email      string
	Provider   Provider
	OccurredAt time.Time
}

func (UserRegistered) EventName() string { return EventUserRegistered }

type UserLoggedIn struct {
	UserID     string
	Email      string
	Provider   Provider
	IPAddress  string
	OccurredAt time.Time
}

func (UserLoggedIn) EventName() string { return EventUserLoggedIn }

type UserDeleted struct {
	UserID     string
	Email      string
	OccurredAt time.Time
}

func (UserDeleted) EventName() string { return EventUserDeleted }
