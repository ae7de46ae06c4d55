package rates

import "time"

// Rate is a base membership rate for a dated window. The net amount is
// the base amount scaled by the multiplier plus the fixed charge.
type Rate struct {
	ID         int64
	StartsOn   time.Time
	EndsOn     time.Time
	Amount     float64
	Multiplier float64
	Charge     float64
}

// NetAmount returns the payable amount before any band adjustment.
func (r Rate) NetAmount() float64 {
	return r.Amount*r.Multiplier + r.Charge
}

// ActiveAt reports whether the rate window covers d, exclusive on both
// ends. Adjacent windows share their boundary day with neither rate.
func (r Rate) ActiveAt(d time.Time) bool {
	return r.StartsOn.Before(d) && d.Before(r.EndsOn)
}

// Band is a dated multiplier adjustment applied on top of a rate, such
// as a concession or family discount.
type Band struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Multiplier  float64
	StartsOn    time.Time
	EndsOn      time.Time
}

// ActiveAt reports whether the band window covers d.
func (b Band) ActiveAt(d time.Time) bool {
	return b.StartsOn.Before(d) && d.Before(b.EndsOn)
}

// Apply returns the rate's net amount adjusted by the band multiplier.
func (b Band) Apply(r Rate) float64 {
	return r.NetAmount() * b.Multiplier
}
