// Package booking holds the flight booking flow: the Record collected from the
// user, the booking waterfall and the date disambiguation sub-dialogs.
package booking

import (
	"fmt"
	"strings"
)

// Record is the booking being collected. Empty fields are unset.
type Record struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Budget      string `json:"budget,omitempty"`
}

// Complete reports whether all five fields are set.
func (r Record) Complete() bool {
	return r.Origin != "" && r.Destination != "" && r.StartDate != "" && r.EndDate != "" && r.Budget != ""
}

// Properties is the record as telemetry properties. Unset fields are
// included as empty strings so a snapshot always has all five keys.
func (r Record) Properties() map[string]any {
	return map[string]any{
		"origin":      r.Origin,
		"destination": r.Destination,
		"start_date":  r.StartDate,
		"end_date":    r.EndDate,
		"budget":      r.Budget,
	}
}

// Summary is the human readable confirmation text.
func (r Record) Summary() string {
	var b strings.Builder
	b.WriteString("Please confirm :\n\n")
	fmt.Fprintf(&b, "Departure : %s\n\n", r.Origin)
	fmt.Fprintf(&b, "Destination : %s\n\n", r.Destination)
	fmt.Fprintf(&b, "Starting on: %s\n\n", r.StartDate)
	fmt.Fprintf(&b, "Ending on: %s\n\n", r.EndDate)
	fmt.Fprintf(&b, "Budget: %s.", r.Budget)
	return b.String()
}
