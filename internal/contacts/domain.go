package contacts

import "time"

// Address types. The text column holds the actual address: an email
// address, a phone number, or a formatted postal address.
const (
	TypeEmail  = "EMAIL"
	TypePhone  = "PHONE"
	TypePostal = "POSTAL"
)

// Address is a contact point attached to a member, optionally verified.
type Address struct {
	ID        int64
	MemberID  string
	Type      string
	Label     string
	Text      string
	Verified  bool
	CreatedAt time.Time
}

// ValidType reports whether t is a recognised address type.
func ValidType(t string) bool {
	switch t {
	case TypeEmail, TypePhone, TypePostal:
		return true
	}
	return false
}
