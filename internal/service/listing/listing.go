// Package listing produces the placeholder cinema and OTT suggestions that
// can be appended to model answers while real listing data is unavailable.
package listing

import (
	"fmt"
	"strings"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
)

const (
	cinemaTitle = "Dune: Part Two"
	ottTitle    = "Stranger Things"

	bookingBaseURL = "https://www.fandango.com"
)

// CinemaListing is a mock in-theatre recommendation.
type CinemaListing struct {
	Title         string
	Justification string
	Rating        string
	ReviewSnippet string
	Showtimes     string
	BookingLink   string
}

// OTTListing is a mock streaming recommendation.
type OTTListing struct {
	Title         string
	Platform      string
	Justification string
	Rating        string
}

// MockCinema builds the cinema placeholder for title near location.
func MockCinema(title, location string) CinemaListing {
	return CinemaListing{
		Title:         title,
		Justification: fmt.Sprintf("%s matches your preferences.", title),
		Rating:        "IMDb: 7.8/10, Rotten Tomatoes: 85%",
		ReviewSnippet: fmt.Sprintf("Critics call %s 'a must-watch!'", title),
		Showtimes:     "Cineplex Central at 7:00 PM, 9:30 PM",
		BookingLink:   BookingLink(title, location),
	}
}

// MockOTT builds the streaming placeholder for title.
func MockOTT(title string) OTTListing {
	return OTTListing{
		Title:         title,
		Platform:      "Netflix",
		Justification: fmt.Sprintf("%s is perfect for your taste.", title),
		Rating:        "IMDb: 8.0/10",
	}
}

// BookingLink returns a ticket search URL. Spaces become "+" in both parts.
func BookingLink(title, location string) string {
	if location == "" {
		return bookingBaseURL
	}
	return fmt.Sprintf("%s/search?q=%s+%s", bookingBaseURL,
		strings.ReplaceAll(title, " ", "+"),
		strings.ReplaceAll(location, " ", "+"))
}

// MockSources are the static citations attached to mock listings.
func MockSources() []chat.Source {
	return []chat.Source{
		{Title: "IMDb", URI: "https://www.imdb.com"},
		{Title: "Rotten Tomatoes", URI: "https://www.rottentomatoes.com"},
	}
}

// Augment returns the markdown appendix for input and the sources backing it.
// Both are empty when input asks for neither movies nor series.
func Augment(input, location string) (string, []chat.Source) {
	lower := strings.ToLower(input)

	var b strings.Builder
	if strings.Contains(lower, "cinema") || strings.Contains(lower, "movie") {
		if location == "" {
			b.WriteString("\n\n**Please provide your city** for cinema showtimes!")
		} else {
			rec := MockCinema(cinemaTitle, location)
			fmt.Fprintf(&b, "\n\n**Cinema Recommendation: %s**\n", rec.Title)
			fmt.Fprintf(&b, "- Justification: %s\n", rec.Justification)
			fmt.Fprintf(&b, "- Rating: %s\n", rec.Rating)
			fmt.Fprintf(&b, "- Review: %s\n", rec.ReviewSnippet)
			fmt.Fprintf(&b, "- Showtimes: %s\n", rec.Showtimes)
			fmt.Fprintf(&b, "- Booking: [Find tickets](%s) (Booking coming soon)", rec.BookingLink)
		}
	}
	if strings.Contains(lower, "series") || strings.Contains(lower, "ott") {
		rec := MockOTT(ottTitle)
		fmt.Fprintf(&b, "\n\n**OTT Recommendation: %s**\n", rec.Title)
		fmt.Fprintf(&b, "- Platform: %s\n", rec.Platform)
		fmt.Fprintf(&b, "- Justification: %s\n", rec.Justification)
		fmt.Fprintf(&b, "- Rating: %s", rec.Rating)
	}

	if b.Len() == 0 {
		return "", nil
	}
	return b.String(), MockSources()
}
