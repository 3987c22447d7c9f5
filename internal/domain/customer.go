package domain

import "time"

// Customer is the domain model for end-users who submit tickets.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
