package persistence

import "time"

// Resource represents a bookable console.
type Resource struct {
	ID               string
	Name             string
	Type             string
	Enabled          bool
	DurationsMinutes []int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Reservation represents a stored booking of a resource. OwnerPIN holds either a
// PIN hash or the admin-created marker.
type Reservation struct {
	ID                 string
	ResourceID         string
	OwnerName          string
	AuthorizationToken string
	OwnerPIN           string
	RequestedStart     time.Time
	RequestedEnd       time.Time
	Validated          bool
	ValidatedAt        *time.Time
	CreatedAt          time.Time
}

// AuthorizationToken represents a whitelisted token.
type AuthorizationToken struct {
	Token     string
	CreatedAt time.Time
}
