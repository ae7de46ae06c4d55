package auth

import "time"

// Credential is a login bound to a member record. Members exist without
// credentials until they claim an account.
type Credential struct {
	MemberID     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
