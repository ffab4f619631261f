package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	ReservationCap   = 20
	ListingTextLimit = 4000
)

type Reservations struct {
	Reservations []string `json:"reservations"`
	Count        int      `json:"count"`
	Text         string   `json:"text"`
}

// ReservationsFrom renders every table row of a page, Count is the number of rows
// before capping.
func ReservationsFrom(sel *goquery.Selection) Reservations {
	rows := TableRows(sel.Find("table"))
	return Reservations{
		Reservations: CapList(rows, ReservationCap),
		Count:        len(rows),
		Text:         Truncate(strings.Join(rows, "\n"), ListingTextLimit),
	}
}
