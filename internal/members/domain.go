package members

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Person represents a registered member. ID is generated once at creation
// and never changes.
type Person struct {
	ID          string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	CreatedAt   time.Time
}

// FullName returns the title-cased display name.
func (p Person) FullName() string {
	return strings.TrimSpace(titleCaser.String(p.FirstName) + " " + titleCaser.String(p.LastName))
}

// Age returns the member's age in whole years on the given date, or -1 when
// no birth date is recorded.
func (p Person) Age(on time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	years := on.Year() - dob.Year()
	// Not yet reached this year's birthday.
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return -1
	}
	return years
}
