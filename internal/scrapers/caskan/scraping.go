package caskan

import (
	"context"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_home_info    = "client.home-info"
	report_client_schedule     = "client.schedule"
	report_client_reservations = "client.reservations"
	report_client_room_map     = "client.room-map"
	report_client_cast_list    = "client.cast-list"
)

const (
	ScheduleTextLimit   = 3500
	SchedulePlaceholder = "スケジュール情報が見つかりません"
)

var salesRules = []extract.LabelRule{
	{Key: "today", Label: "本日"},
	{Key: "yesterday", Label: "昨日"},
	{Key: "this_month", Label: "今月"},
	{Key: "last_month", Label: "昨月"},
}

func (c *Client) HomeInfo(ctx context.Context) (HomeInfo, error) {
	doc, err := c.page(ctx, "/", nil)
	if err != nil {
		return HomeInfo{}, err
	}

	info := HomeInfo{
		Sales: extract.LabelValues(extract.Lines(doc), salesRules),
	}
	if len(info.Sales) == 0 {
		c.tel.ReportWarning(report_client_home_info, "no sales figures found")
	}

	doc.Find("textarea").Each(func(_ int, ta *goquery.Selection) {
		content := strings.TrimSpace(ta.Text())
		switch {
		case strings.Contains(content, "出勤情報"):
			info.AttendanceText = content
		case strings.Contains(content, "案内状況"):
			info.GuidanceText = content
		}
	})

	return info, nil
}

func (c *Client) Schedule(ctx context.Context) (ScheduleText, error) {
	doc, err := c.page(ctx, "/schedule/week", nil)
	if err != nil {
		return ScheduleText{}, err
	}

	rendered := extract.BookingSchedule.RenderSchedule(extract.Lines(doc))
	if len(rendered) == 0 {
		c.tel.ReportWarning(report_client_schedule, "no schedule lines recognized")
		return ScheduleText{ScheduleText: SchedulePlaceholder}, nil
	}
	return ScheduleText{
		ScheduleText: extract.Truncate(strings.Join(rendered, "\n"), ScheduleTextLimit),
	}, nil
}

func (c *Client) Reservations(ctx context.Context) (extract.Reservations, error) {
	doc, err := c.page(ctx, "/reservation", nil)
	if err != nil {
		return extract.Reservations{}, err
	}
	res := extract.ReservationsFrom(doc.Selection)
	if res.Count == 0 {
		c.tel.ReportWarning(report_client_reservations, "no reservation rows found")
	}
	return res, nil
}

// RoomMap returns room id -> room display name.
func (c *Client) RoomMap(ctx context.Context) (map[string]string, error) {
	err := c.EnsureLogin(ctx)
	if err != nil {
		return nil, err
	}
	return c.roomMap(ctx)
}

func (c *Client) roomMap(ctx context.Context) (map[string]string, error) {
	doc, err := c.rawPage(ctx, "/room", nil)
	if err != nil {
		return nil, err
	}

	rooms := map[string]string{}
	doc.Find(`input[name^="sort["]`).Each(func(_ int, input *goquery.Selection) {
		id := input.AttrOr("value", "")
		row := input.Closest("tr")
		if row.Length() == 0 {
			return
		}
		link := row.Find(`a[href*="/room/view"]`).First()
		if link.Length() == 0 {
			return
		}
		tokens := strings.Fields(htmlutil.JoinedText(link, " "))
		if len(tokens) == 0 {
			return
		}
		rooms[id] = tokens[0]
	})
	if len(rooms) == 0 {
		c.tel.ReportWarning(report_client_room_map, "no rooms found")
	}
	return rooms, nil
}

// CastList returns every staff member linked from the cast page, de-duplicated by
// name in page order.
func (c *Client) CastList(ctx context.Context) ([]CastRecord, error) {
	doc, err := c.page(ctx, "/cast", nil)
	if err != nil {
		return nil, err
	}

	casts := []CastRecord{}
	seen := map[string]struct{}{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("a").Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			name := htmlutil.CompactText(a)
			if !strings.Contains(href, "/cast/") || name == "" || strings.Contains(name, "編集") {
				return
			}
			if _, ok := seen[name]; ok {
				return
			}
			seen[name] = struct{}{}

			status := CastUnpublished
			if strings.Contains(htmlutil.JoinedText(row, " "), string(CastPublished)) {
				status = CastPublished
			}
			casts = append(casts, CastRecord{Name: name, Status: status})
		})
	})
	if len(casts) == 0 {
		c.tel.ReportWarning(report_client_cast_list, "no casts found")
	}
	return casts, nil
}
