package models

import (
	"fmt"
	"time"
)

// PlaceholderTicketURL is used when the event provider has no ticket link.
const PlaceholderTicketURL = "https://www.ticketmaster.com"

// Event is a live show. Event providers guarantee no stable external id,
// so identity is the artist/venue/date composite.
type Event struct {
	Artist    string    `json:"artist"`
	Venue     string    `json:"venue"`
	Date      time.Time `json:"date"` // calendar date, no time-of-day guarantee
	TicketURL string    `json:"ticketUrl"`
}

// Key returns the composite identity of the event.
func (e Event) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Artist, e.Venue, e.Date.Format("2006-01-02"))
}
