package caskan

import (
	"context"
	"net/url"
	"portalbot-backend/internal/shiftcal"
	"portalbot-backend/pkg/htmlutil"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const report_client_week_shifts = "client.week-shifts"

// WeekShifts returns the shifts on the weekly shift table starting at start. The
// table may contain days outside of the month of start.
func (c *Client) WeekShifts(ctx context.Context, start time.Time) ([]shiftcal.Entry, error) {
	err := c.EnsureLogin(ctx)
	if err != nil {
		return nil, err
	}
	return c.weekShifts(ctx, start)
}

func (c *Client) weekShifts(ctx context.Context, start time.Time) ([]shiftcal.Entry, error) {
	doc, err := c.rawPage(ctx, "/shift/view", url.Values{
		"start_day": {start.Format("2006-01-02")},
	})
	if err != nil {
		return nil, err
	}

	entries := []shiftcal.Entry{}
	doc.Find("table.parts-cast-table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			td := row.Find("td").First()
			if td.Length() == 0 {
				return
			}
			divs := td.Find("div")
			name := htmlutil.CompactText(divs.Eq(0))
			timeRange := htmlutil.CompactText(divs.Eq(1))

			span := td.Find("span[data-room-id]").First()
			if span.Length() == 0 {
				return
			}
			day := span.AttrOr("data-day", "")
			if day == "" || name == "" {
				return
			}
			entries = append(entries, shiftcal.Entry{
				Day:    day,
				Name:   name,
				Time:   timeRange,
				RoomId: span.AttrOr("data-room-id", ""),
			})
		})
	})
	c.tel.ReportCount(report_client_week_shifts, int64(len(entries)))
	return entries, nil
}

// monthSource serves the aggregator once the session was checked for the month.
type monthSource struct {
	client *Client
}

func (s monthSource) RoomMap(ctx context.Context) (map[string]string, error) {
	return s.client.roomMap(ctx)
}

func (s monthSource) WeekShifts(ctx context.Context, start time.Time) ([]shiftcal.Entry, error) {
	return s.client.weekShifts(ctx, start)
}

// MonthlyShift returns every day of a month with its shifts and used rooms. A failed
// login aborts before anything is fetched.
func (c *Client) MonthlyShift(ctx context.Context, year, month int) (shiftcal.MonthlyShift, error) {
	_, _, err := shiftcal.MonthBounds(year, month)
	if err != nil {
		return shiftcal.MonthlyShift{}, err
	}
	err = c.EnsureLogin(ctx)
	if err != nil {
		return shiftcal.MonthlyShift{}, err
	}
	return shiftcal.NewAggregator(monthSource{client: c}, c.tel).Month(ctx, year, month)
}
